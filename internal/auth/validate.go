package auth

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateRegistration checks email format, password complexity and name
// length. Returns a per-field error map, empty when everything passes.
func ValidateRegistration(email, password, name string) map[string]string {
	fields := map[string]string{}
	if !emailRegex.MatchString(email) {
		fields["email"] = "invalid email format"
	}
	if msg := passwordComplexityError(password); msg != "" {
		fields["password"] = msg
	}
	if len(name) < 2 {
		fields["name"] = "name must be at least 2 characters"
	}
	return fields
}

// ValidatePassword applies the complexity rules alone (reset / change flows).
func ValidatePassword(password string) map[string]string {
	fields := map[string]string{}
	if msg := passwordComplexityError(password); msg != "" {
		fields["password"] = msg
	}
	return fields
}

// passwordComplexityError enforces: at least 8 characters with an upper-case
// letter, a lower-case letter and a digit.
func passwordComplexityError(password string) string {
	if utf8.RuneCountInString(password) < 8 {
		return "password must be at least 8 characters"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return "password must contain upper and lower case letters and a digit"
	}
	return ""
}
