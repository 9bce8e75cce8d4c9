package service

import (
	"fmt"
	"unicode"
)

// MinPasswordLength is the registration password policy floor.
const MinPasswordLength = 6

// validatePassword returns one human-readable description per violated
// password rule, empty when the password is acceptable. Descriptions are the
// registration flow's error list, they are never returned from login.
func validatePassword(password string) []string {
	var descriptions []string

	if len(password) < MinPasswordLength {
		descriptions = append(descriptions,
			fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength))
	}

	var hasDigit, hasLower, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}

	if !hasDigit {
		descriptions = append(descriptions, "Passwords must have at least one digit ('0'-'9').")
	}
	if !hasLower {
		descriptions = append(descriptions, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if !hasUpper {
		descriptions = append(descriptions, "Passwords must have at least one uppercase ('A'-'Z').")
	}

	return descriptions
}
