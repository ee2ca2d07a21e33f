package auth

import "errors"

var (
	ErrSecretRequired        = errors.New("auth: jwt secret required")
	ErrMissingField          = errors.New("auth: required field missing")
	ErrDuplicateEmail        = errors.New("auth: email already registered")
	ErrUserNotFound          = errors.New("auth: user not found")
	ErrIncorrectCredential   = errors.New("auth: incorrect credentials")
	ErrInvalidToken          = errors.New("auth: invalid token")
	ErrExpiredToken          = errors.New("auth: token expired")
	ErrInvalidOrExpiredToken = errors.New("auth: reset token is invalid or has expired")
	ErrEmailDelivery         = errors.New("auth: reset email could not be delivered")
)
