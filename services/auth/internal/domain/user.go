package domain

import (
	"regexp"
	"strings"
	"time"
)

const DefaultProfileImage = "https://cdn-icons-png.flaticon.com/512/149/149071.png"

const MinPasswordLength = 6

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UserInfo struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage"`
}

// ToUserInfo converts User to UserInfo (without sensitive data)
func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Key      string `json:"key"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    *UserInfo `json:"user"`
}

type UpdateProfileRequest struct {
	Username     *string `json:"username,omitempty"`
	Email        *string `json:"email,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

type ProfileResponse struct {
	Message string    `json:"message"`
	User    *UserInfo `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// Business messages returned to clients
const (
	MsgAllFieldsRequired     = "All fields are required"
	MsgInvalidRegistration   = "Invalid hotel registration key"
	MsgUserExists            = "User already exists"
	MsgUsernameTaken         = "Username already taken"
	MsgInvalidEmail          = "Invalid email format"
	MsgPasswordTooShort      = "Password must be at least 6 characters"
	MsgEmailPasswordRequired = "Email and password required"
	MsgInvalidCredentials    = "Invalid email or password"
	MsgUserNotFound          = "User not found"
	MsgEmailRequired         = "Email is required"
	MsgOTPSent               = "OTP sent to your email"
	MsgOTPNotDelivered       = "OTP generated but the email could not be sent; try again shortly"
	MsgOTPRequired           = "OTP and new password required"
	MsgInvalidOTP            = "Invalid or expired OTP"
	MsgPasswordReset         = "Password has been reset successfully"
	MsgRegistered            = "Registration successful"
	MsgLoggedIn              = "Login successful"
	MsgProfileUpdated        = "Profile updated"
	MsgNothingToUpdate       = "No fields to update"
	MsgTooManyRequests       = "Too many requests. Please try again later."
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.Key = strings.TrimSpace(r.Key)
}

func (r *RegisterRequest) HasRequiredFields() bool {
	return r.Username != "" && r.Email != "" && r.Password != "" && r.Key != ""
}

// Validate checks the formats of an otherwise complete request.
func (r *RegisterRequest) Validate() string {
	if !IsValidEmail(r.Email) {
		return MsgInvalidEmail
	}
	if len(r.Password) < MinPasswordLength {
		return MsgPasswordTooShort
	}
	return ""
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *UpdateProfileRequest) Normalize() {
	if r.Username != nil {
		v := strings.TrimSpace(*r.Username)
		r.Username = &v
	}
	if r.Email != nil {
		v := NormalizeEmail(*r.Email)
		r.Email = &v
	}
	if r.ProfileImage != nil {
		v := strings.TrimSpace(*r.ProfileImage)
		r.ProfileImage = &v
	}
}

// Validate ignores empty strings, matching a form that leaves a field blank.
func (r *UpdateProfileRequest) Validate() string {
	empty := func(p *string) bool { return p == nil || *p == "" }
	if empty(r.Username) && empty(r.Email) && empty(r.ProfileImage) {
		return MsgNothingToUpdate
	}
	if !empty(r.Email) && !IsValidEmail(*r.Email) {
		return MsgInvalidEmail
	}
	return ""
}

func (r *ResetPasswordRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}
