package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	JWT       JWTConfig
	Otp       OtpConfig
	Reset     ResetConfig
	Auth      AuthConfig
	SMTP      SMTPConfig
	SMS       SMSConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        string
	Origin      string
	Timeout     time.Duration
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type OtpConfig struct {
	CodeLength        int
	TTL               time.Duration
	MaxPerHour        int
	MaxVerifyAttempts int
	LockoutDuration   time.Duration
}

type ResetConfig struct {
	CodeLength int
	TTL        time.Duration
}

type AuthConfig struct {
	// Auto-creates a user on OTP verification when none exists for the
	// target. Never enabled in production deployments.
	AllowImplicitProvisioning bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type SMSConfig struct {
	Provider         string // "console" or "twilio"
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

type DatabaseConfig struct {
	// Driver selects the user store: "memory" or "postgres".
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type RedisConfig struct {
	// Driver selects the code/counter store: "memory" or "redis".
	Driver       string
	Host         string
	Port         int
	Password     string
	Database     int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RateLimitConfig struct {
	Request  int
	Duration int
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine, real deployments set the environment directly.
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "identity-service"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "4000"),
			Origin:      getEnv("ORIGIN", "http://localhost:5173"),
			Timeout:     getEnvAsDuration("APP_TIMEOUT", 30*time.Second),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			AccessTokenTTL: time.Duration(getEnvAsInt("ACCESS_TOKEN_TTL_DAYS", 10)) * 24 * time.Hour,
		},
		Otp: OtpConfig{
			CodeLength:        getEnvAsInt("OTP_CODE_LENGTH", 6),
			TTL:               time.Duration(getEnvAsInt("OTP_TTL_SECONDS", 300)) * time.Second,
			MaxPerHour:        getEnvAsInt("OTP_MAX_PER_HOUR", 5),
			MaxVerifyAttempts: getEnvAsInt("OTP_MAX_VERIFY_ATTEMPTS", 5),
			LockoutDuration:   time.Duration(getEnvAsInt("OTP_LOCKOUT_MINUTES", 15)) * time.Minute,
		},
		Reset: ResetConfig{
			CodeLength: getEnvAsInt("RESET_CODE_LENGTH", 6),
			TTL:        time.Duration(getEnvAsInt("RESET_TTL_SECONDS", 180)) * time.Second,
		},
		Auth: AuthConfig{
			AllowImplicitProvisioning: getEnvAsBool("AUTH_ALLOW_IMPLICIT_PROVISIONING", false),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			Sender:   getEnv("SMTP_SENDER", "noreply@example.com"),
		},
		SMS: SMSConfig{
			Provider:         getEnv("SMS_PROVIDER", "console"),
			TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("USER_STORE", "memory"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "identity_db"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Driver:       getEnv("CODE_STORE", "memory"),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Request:  getEnvAsInt("RATE_LIMIT_MAX_REQUEST", 200),
			Duration: getEnvAsInt("RATE_LIMIT_DURATION", 900),
		},
	}

	return config, nil
}

// IsProduction reports whether the service runs with production hardening:
// real OTP codes, Secure cookies, no implicit provisioning.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
