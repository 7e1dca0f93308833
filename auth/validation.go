package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims, lowercases, and validates an email address,
// returning the canonical form sent to the server.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegexp.MatchString(email) {
		return "", InvalidEmailErr
	}
	return email, nil
}

// ValidatePasswordStrength checks if a password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
// - Contains at least one special character
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	if !hasSpecial {
		return fmt.Errorf("password must contain at least one special character")
	}
	return nil
}

// ValidatePasswordChange enforces the cross-field rules for a password
// change request on top of the strength requirements.
func ValidatePasswordChange(currentPassword, newPassword, confirmNewPassword string) error {
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	if newPassword == currentPassword {
		return PasswordUnchangedErr
	}
	if newPassword != confirmNewPassword {
		return PasswordMismatchErr
	}
	return nil
}
