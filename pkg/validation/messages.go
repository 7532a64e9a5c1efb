package validation

import (
	"fmt"
	"strings"
)

// Message maps a failed validation tag to the user-facing error text.
// Field-specific copy takes priority over the generic tag message.
func Message(field, tag string) string {
	if fieldMessages := customMessages[field]; fieldMessages != nil {
		if msg, exists := fieldMessages[tag]; exists {
			return msg
		}
	}
	return defaultMessage(field, tag)
}

var customMessages = map[string]map[string]string{
	"Name": {
		"required": "Invalid name (2-50 characters)",
		"min":      "Invalid name (2-50 characters)",
		"max":      "Invalid name (2-50 characters)",
	},
	"Email": {
		"required": "Invalid email",
		"email":    "Invalid email",
	},
	"Phone": {
		"required": "Invalid phone (E.164)",
		"e164":     "Invalid phone (E.164)",
	},
	"EmailOrPhone": {
		"required":     "Invalid email or phone",
		"emailorphone": "Invalid email or phone",
	},
	"Channel": {
		"required": "Invalid channel",
		"oneof":    "Invalid channel",
	},
	"Code": {
		"required": "Invalid or expired code",
		"otpcode":  "Invalid or expired code",
	},
	"Password": {
		"loginpassword": "Password must be 8+ characters with uppercase, lowercase and a number",
	},
	"NewPassword": {
		"required":      "Password must be 8+ characters with uppercase, lowercase and a number",
		"loginpassword": "Password must be 8+ characters with uppercase, lowercase and a number",
	},
	"OtpChannel": {
		"oneof": "Invalid channel",
	},
}

func defaultMessage(field, tag string) string {
	field = strings.ToLower(field)

	switch tag {
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s is below the minimum length or value", field)
	case "max":
		return fmt.Sprintf("%s exceeds the maximum length or value", field)
	case "len":
		return fmt.Sprintf("%s has the wrong length", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of the allowed values", field)
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
