// Package auth handles user accounts and credentials for the event board:
// registration, login, admin login with a TOTP second factor, the password
// reset flow, and the bearer-token gate that protects every other plugin.
//
// This is a CORE plugin. Every authenticated route depends on RequireAuth.
package auth

import (
	"time"
)

// User is a registered account. Credential material never leaves the
// server: the hash, OTP secret and reset token fields are excluded from JSON.
type User struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"-"`
	IsAdmin      bool    `json:"isAdmin"`
	OTPSecret    *string `json:"-"` // Set only for the admin account.

	// ResetTokenHash is SHA-256(token) of the outstanding reset token.
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is the resolved caller attached to the request by RequireAuth.
type Identity struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest is the body of POST /user/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5,max=128"`
	IsAdmin  bool   `json:"isAdmin"`
}

// LoginRequest is the body of POST /user/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

// AdminLoginRequest is the body of POST /user/adminLogin. A missing otp
// passes validation and is rejected as bad credentials by the service, so
// the response never reveals which factor was wrong.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
	OTP      string `json:"otp" validate:"omitempty,len=6,number"`
}

// ForgotPasswordRequest is the body of POST /user/forgotPassword.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /user/resetPassword.
type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=5,max=128"`
}

// UpdatePasswordRequest is the body of POST /user/updatePassword.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=5,max=128"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	IsAdmin  bool
}

// LoginInput is the validated input for authenticating a user. OTP is only
// consulted by AdminLogin.
type LoginInput struct {
	Email    string
	Password string
	OTP      string
}

// AuthResult is returned by Register, Login and AdminLogin.
type AuthResult struct {
	Token string `json:"token"`

	// OTPAuthURL is returned once, when the admin account is created, so
	// the secret can be enrolled in an authenticator app.
	OTPAuthURL string `json:"otpauthUrl,omitempty"`
}

// MessageResponse is the body of endpoints that only acknowledge success.
type MessageResponse struct {
	Message string `json:"message"`
}
