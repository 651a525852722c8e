package domain

import "errors"

var ErrUserExists = errors.New("user already exists")
var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidInput = errors.New("invalid registration input")
var ErrForbidden = errors.New("access forbidden")
var ErrMissingSigningKey = errors.New("token signing key is not configured")
