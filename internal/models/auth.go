package models

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required,mobile"`
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"omitempty,max=100"`
}

type SendOTPResponse struct {
	Message      string   `json:"message"`
	DeliveredVia []string `json:"deliveredVia"`
}

// VerifyOTPRequest identifies the user by phone, or by email when phone is absent.
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"omitempty,mobile"`
	Email string `json:"email" validate:"omitempty,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// AdminLoginRequest represents the credentials submitted for admin login.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AdminLoginResponse struct {
	OTPRequired  bool     `json:"otpRequired"`
	DeliveredVia []string `json:"deliveredVia,omitempty"`
}

type AdminVerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type AdminAuthResponse struct {
	Token string      `json:"token"`
	Admin PublicAdmin `json:"admin"`
	// MaxAge is the session lifetime in seconds, mirrored in the cookie.
	MaxAge int `json:"-"`
}

// RequestMeta carries caller details used for audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}
