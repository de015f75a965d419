package validator

import (
	"net/mail"
	"strings"
)

// Required checks that a string value is non-empty after trimming.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:   field,
			Message: "is required",
		},
	}
}

// ValidEmail checks that a value is a plausible email address for web use:
// parseable by net/mail, a single @, and a dotted domain.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil {
				return false
			}

			email := addr.Address
			parts := strings.Split(email, "@")
			if len(parts) != 2 {
				return false
			}
			if parts[0] == "" || parts[1] == "" {
				return false
			}

			return strings.Contains(parts[1], ".")
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid email address",
		},
	}
}
