package auth

import "errors"

var (
	InvalidEmailErr       = errors.New("please provide a valid email address")
	PasswordMismatchErr   = errors.New("new password and confirmation do not match")
	PasswordUnchangedErr  = errors.New("new password must be different from current password")
	NotAuthenticatedErr   = errors.New("not authenticated")
	MissingCredentialsErr = errors.New("email and password are required")
)
