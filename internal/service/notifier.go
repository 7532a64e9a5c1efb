package service

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/draftdesk/identity/config"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/pkg/circuit"
	"github.com/draftdesk/identity/pkg/logger"
)

// CodePurpose selects the message copy for an outbound code.
type CodePurpose string

const (
	PurposeVerification CodePurpose = "verification"
	PurposeReset        CodePurpose = "reset"
)

// EmailProvider delivers a rendered message to one recipient.
type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SmsProvider delivers a rendered message to one phone number.
type SmsProvider interface {
	SendSMS(ctx context.Context, to, message string) error
}

// NotificationDispatcher renders code messages and routes them to the
// channel's provider. Each provider sits behind its own circuit breaker
// so a failing SMS gateway cannot drag email delivery down with it.
// Delivery failures surface to the caller as ErrDeliveryFailed; the
// stored code stays pending either way.
type NotificationDispatcher struct {
	email        EmailProvider
	sms          SmsProvider
	otpTTL       time.Duration
	resetTTL     time.Duration
	emailBreaker *circuit.Breaker
	smsBreaker   *circuit.Breaker
}

func NewNotificationDispatcher(email EmailProvider, sms SmsProvider, otpTTL, resetTTL time.Duration) *NotificationDispatcher {
	log := logger.GetLogger()
	return &NotificationDispatcher{
		email:        email,
		sms:          sms,
		otpTTL:       otpTTL,
		resetTTL:     resetTTL,
		emailBreaker: circuit.NewBreaker("email", circuit.DefaultConfig(), log),
		smsBreaker:   circuit.NewBreaker("sms", circuit.DefaultConfig(), log),
	}
}

// SendCode delivers a plaintext code over the given channel.
func (d *NotificationDispatcher) SendCode(ctx context.Context, channel model.Channel, target, code string, purpose CodePurpose) error {
	var err error
	switch channel {
	case model.ChannelEmail:
		subject, body := d.renderEmail(code, purpose)
		err = d.emailBreaker.Execute(func() error {
			return d.email.SendEmail(ctx, target, subject, body)
		})
	case model.ChannelPhone:
		err = d.smsBreaker.Execute(func() error {
			return d.sms.SendSMS(ctx, target, d.renderSms(code, purpose))
		})
	default:
		return apperrors.ErrInvalidInput
	}

	if err != nil {
		logger.GetLogger().Error("Failed to deliver code",
			zap.String("channel", string(channel)),
			zap.String("target", logger.MaskTarget(target)),
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
		return apperrors.ErrDeliveryFailed
	}
	return nil
}

func (d *NotificationDispatcher) renderEmail(code string, purpose CodePurpose) (subject, body string) {
	minutes := d.expiryMinutes(purpose)
	if purpose == PurposeReset {
		return "Your password reset code",
			fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, minutes)
	}
	return "Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
}

func (d *NotificationDispatcher) renderSms(code string, purpose CodePurpose) string {
	minutes := d.expiryMinutes(purpose)
	if purpose == PurposeReset {
		return fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, minutes)
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
}

func (d *NotificationDispatcher) expiryMinutes(purpose CodePurpose) int {
	if purpose == PurposeReset {
		return int(d.resetTTL.Minutes())
	}
	return int(d.otpTTL.Minutes())
}

// SmtpEmailProvider sends mail through a plain-auth SMTP relay.
type SmtpEmailProvider struct {
	cfg config.SMTPConfig
}

func NewSmtpEmailProvider(cfg config.SMTPConfig) *SmtpEmailProvider {
	return &SmtpEmailProvider{cfg: cfg}
}

func (p *SmtpEmailProvider) SendEmail(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		p.cfg.Sender, to, subject, body,
	))

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, p.cfg.Sender, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// ConsoleEmailProvider logs mail instead of sending it, for local runs
// without an SMTP relay.
type ConsoleEmailProvider struct{}

func (ConsoleEmailProvider) SendEmail(_ context.Context, to, subject, body string) error {
	logger.GetLogger().Info("Email (console provider)",
		zap.String("to", logger.MaskTarget(to)),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// ConsoleSmsProvider logs messages instead of sending them.
type ConsoleSmsProvider struct{}

func (ConsoleSmsProvider) SendSMS(_ context.Context, to, message string) error {
	logger.GetLogger().Info("SMS (console provider)",
		zap.String("to", logger.MaskTarget(to)),
		zap.String("message", message),
	)
	return nil
}

// TwilioSmsProvider is a placeholder for the real gateway integration.
// It fails every send so misconfigured deployments are loud rather than
// silently dropping codes.
// TODO: wire the Twilio REST client once the account is provisioned.
type TwilioSmsProvider struct {
	cfg config.SMSConfig
}

func NewTwilioSmsProvider(cfg config.SMSConfig) *TwilioSmsProvider {
	return &TwilioSmsProvider{cfg: cfg}
}

func (p *TwilioSmsProvider) SendSMS(context.Context, string, string) error {
	return errors.New("twilio provider not implemented")
}

// NewEmailProviderFromConfig picks SMTP when a host is configured and the
// console mock otherwise.
func NewEmailProviderFromConfig(cfg config.SMTPConfig) EmailProvider {
	if cfg.Host == "" {
		return ConsoleEmailProvider{}
	}
	return NewSmtpEmailProvider(cfg)
}

// NewSmsProviderFromConfig picks the provider named in configuration.
func NewSmsProviderFromConfig(cfg config.SMSConfig) SmsProvider {
	if cfg.Provider == "twilio" {
		return NewTwilioSmsProvider(cfg)
	}
	return ConsoleSmsProvider{}
}
