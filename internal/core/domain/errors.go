package domain

import "errors"

// Sentinel errors shared across the services. The API error handler maps
// each to its HTTP status code; anything unrecognized becomes an opaque 500.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password too weak")
	ErrBlankPassword      = errors.New("blank password")
	ErrRoleNotAllowed     = errors.New("role not allowed")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrUnknownCaller      = errors.New("unknown caller")
	ErrForbidden          = errors.New("access forbidden")
	ErrLinkNotFound       = errors.New("link not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrFileExists         = errors.New("file already exists")
)
