package auth

import "errors"

var (
	// ErrDuplicateIdentity is returned by Signup when the email is taken.
	ErrDuplicateIdentity = errors.New("identity already exists")
	// ErrInvalidCredentials covers both unknown user and wrong password;
	// the wire level never distinguishes the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by ForgotPassword for an unknown email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidResetToken covers expiry, tampering and hash rotation alike.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)
