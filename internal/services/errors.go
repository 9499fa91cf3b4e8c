package services

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrSlotConflict         = errors.New("this time slot is already booked")
	ErrInvalidCode          = errors.New("invalid or expired code")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrTooManyAttempts      = errors.New("too many attempts, try again later")
	ErrDeliveryUnavailable  = errors.New("could not deliver the code, try again later")
	ErrOTPExpired           = errors.New("code has expired, request a new one")
	ErrEmailInUse           = errors.New("email is already linked to another account")
	ErrSigningSecretMissing = errors.New("session signing secret is not configured")
	ErrSessionExpired       = errors.New("session expired")
	ErrInvalidToken         = errors.New("invalid token")
	ErrForbidden            = errors.New("admin access required")
)
