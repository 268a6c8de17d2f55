package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// OTPChallenge is the pending phone verification state. It exists only
// between send-otp and verify-otp; a verified user carries none.
type OTPChallenge struct {
	Code      string    `bson:"code"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// TokenChallenge is the pending email verification state.
type TokenChallenge struct {
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type StudentDetails struct {
	Year                 string `bson:"year,omitempty" json:"year,omitempty"`
	UniversityRollNumber string `bson:"university_roll_number,omitempty" json:"universityRollNumber,omitempty"`
	Branch               string `bson:"branch,omitempty" json:"branch,omitempty"`
	MobileNumber         string `bson:"mobile_number,omitempty" json:"mobileNumber,omitempty"`
}

type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	Email             string             `bson:"email" json:"email"`
	Phone             string             `bson:"phone,omitempty" json:"phone"`
	PasswordHash      string             `bson:"password_hash,omitempty" json:"-"`
	Role              string             `bson:"role" json:"role"`
	IsEmailVerified   bool               `bson:"is_email_verified" json:"isEmailVerified"`
	IsPhoneVerified   bool               `bson:"is_phone_verified" json:"isPhoneVerified"`
	PhoneVerification *OTPChallenge      `bson:"phone_verification,omitempty" json:"-"`
	EmailVerification *TokenChallenge    `bson:"email_verification,omitempty" json:"-"`
	StudentDetails    StudentDetails     `bson:"student_details,omitempty" json:"studentDetails"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Active reports whether the account may log in. Both proofs of control
// are required.
func (u *User) Active() bool {
	return u.IsEmailVerified && u.IsPhoneVerified
}

type SendOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type UpdateProfileRequest struct {
	Name            string          `json:"name"`
	CurrentPassword string          `json:"currentPassword"`
	NewPassword     string          `json:"newPassword"`
	StudentDetails  *StudentDetails `json:"studentDetails"`
}
