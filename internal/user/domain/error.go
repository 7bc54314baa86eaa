package domain

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInactiveUser          = errors.New("user is inactive")
	ErrWrongCredentials      = errors.New("wrong credentials")
	ErrNoPasswordSet         = errors.New("no password set for this account")
	ErrConflictingAccount    = errors.New("an account with this identifier already exists")
	ErrWeakPassword          = errors.New("password does not meet strength requirements")
	ErrInvalidEmailFormat    = errors.New("invalid email format")
	ErrMissingIdentifier     = errors.New("at least one account identifier is required")
	ErrAmbiguousProfileMatch = errors.New("profile does not match exactly one user")
	ErrEmailNotFound         = errors.New("email not found")
	ErrInvalidProfile        = errors.New("profile fields are incomplete or malformed")
)
