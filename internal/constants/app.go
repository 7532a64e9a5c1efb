package constants

// Application Information
const (
	AppName    = "Identity Service"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Session cookie
const (
	AccessTokenCookie = "accessToken"
)

// Code store key prefixes
const (
	KeyPrefixOtp     = "otp:"
	KeyPrefixReset   = "reset:"
	KeyPrefixRate    = "otprate:"
	KeyPrefixAttempt = "otpfail:"
	KeyPrefixBlock   = "otpblock:"
)

// Deterministic code substituted outside production so automated tests
// can verify without a real delivery side effect.
const TestOtpCode = "000000"
