// Package validation holds the input normalization helpers and the custom
// validator rules the auth DTOs bind against.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// Fallback for technically valid but unusual addresses (local parts
	// behind internal relays and the like).
	technicalEmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+$`)
	e164Regex           = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	passwordCharsRegex  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	lowerRegex          = regexp.MustCompile(`[a-z]`)
	upperRegex          = regexp.MustCompile(`[A-Z]`)
	digitRegex          = regexp.MustCompile(`\d`)
	whitespaceRegex     = regexp.MustCompile(`\s`)
)

// StripInvisible removes zero-width characters and trims surrounding
// whitespace. Copy-pasted emails and codes frequently carry these.
func StripInvisible(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// NormalizeEmail lowercases and NFC-normalizes an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(norm.NFC.String(StripInvisible(s)))
}

// NormalizePhone strips whitespace from a phone number, keeping it in
// canonical E.164 form.
func NormalizePhone(s string) string {
	return norm.NFC.String(whitespaceRegex.ReplaceAllString(StripInvisible(s), ""))
}

// IsValidEmail validates a normalized email address.
func IsValidEmail(s string) bool {
	t := NormalizeEmail(s)
	if len(t) < 3 || len(t) > 254 {
		return false
	}
	return emailRegex.MatchString(t) || technicalEmailRegex.MatchString(t)
}

// IsValidE164 validates a phone number in E.164 form.
func IsValidE164(s string) bool {
	return e164Regex.MatchString(NormalizePhone(s))
}

// IsValidName validates a display name (2-50 characters trimmed).
func IsValidName(s string) bool {
	t := strings.TrimSpace(s)
	return len(t) >= 2 && len(t) <= 50
}

// IsEmailOrPhone reports whether the value parses as either identity form.
func IsEmailOrPhone(s string) bool {
	t := strings.TrimSpace(s)
	return IsValidEmail(t) || IsValidE164(t)
}

// IsValidPassword enforces the account password policy: at least 8
// characters, letters and digits only, with at least one uppercase letter,
// one lowercase letter, and one digit.
func IsValidPassword(s string) bool {
	t := StripInvisible(s)
	if len(t) < 8 {
		return false
	}
	if !passwordCharsRegex.MatchString(t) {
		return false
	}
	return lowerRegex.MatchString(t) && upperRegex.MatchString(t) && digitRegex.MatchString(t)
}

// IsValidCode reports whether s is exactly length digits.
func IsValidCode(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RegisterRules registers the custom validation tags on the given engine.
// otpCodeLength fixes the "otpcode" rule to the configured code length.
func RegisterRules(v *validator.Validate, otpCodeLength int) error {
	if err := v.RegisterValidation("e164", func(fl validator.FieldLevel) bool {
		return IsValidE164(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("emailorphone", func(fl validator.FieldLevel) bool {
		return IsEmailOrPhone(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("loginpassword", func(fl validator.FieldLevel) bool {
		return IsValidPassword(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		return IsValidCode(strings.TrimSpace(fl.Field().String()), otpCodeLength)
	}); err != nil {
		return err
	}
	return nil
}
