package models

import "time"

// OTPState is the one-time-passcode sub-document shared by users and admins.
// OTPHash and OTPExpires are always set or cleared together.
type OTPState struct {
	OTPHash        string     `json:"-" bson:"otpHash,omitempty"`
	OTPExpires     *time.Time `json:"-" bson:"otpExpires,omitempty"`
	OTPAttempts    int        `json:"-" bson:"otpAttempts"`
	OTPLockedUntil *time.Time `json:"-" bson:"otpLockedUntil,omitempty"`
}

func (s OTPState) IsPending() bool {
	return s.OTPHash != "" && s.OTPExpires != nil
}

func (s OTPState) IsLocked(now time.Time) bool {
	return s.OTPLockedUntil != nil && now.Before(*s.OTPLockedUntil)
}

func (s OTPState) IsExpired(now time.Time) bool {
	return s.OTPExpires == nil || !now.Before(*s.OTPExpires)
}
