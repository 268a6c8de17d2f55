package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	otpValidity        = 10 * time.Minute
	emailTokenValidity = 24 * time.Hour
	sessionValidity    = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrEmailNotVerified   = errors.New("Please verify your email before logging in")
	ErrPhoneNotVerified   = errors.New("Please verify your phone number before logging in")
	ErrInvalidOTP         = errors.New("Invalid or expired OTP")
	ErrInvalidEmailToken  = errors.New("Invalid or expired token")
	ErrEmailRegistered    = errors.New("This email is already registered")
	ErrPhoneRegistered    = errors.New("This phone number is already registered")
	ErrInvalidPhone       = errors.New("Please enter a valid 10-digit phone number")
	ErrPhoneUnverified    = errors.New("Phone number not verified. Please verify your phone number first.")
	ErrAlreadyVerified    = errors.New("Email is already verified")
	ErrUserNotFound       = errors.New("User not found")
	ErrWrongPassword      = errors.New("Current password is incorrect")
	ErrOTPDelivery        = errors.New("Failed to send OTP")
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// ValidationError marks user-input failures whose message is safe to
// surface verbatim.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

// UserStore is the persistence surface the service needs. The Mongo
// repository satisfies it; tests use an in-memory fake.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindByEmailAndPhone(ctx context.Context, email, phone string) (*User, error)
	FindVerifiedOwner(ctx context.Context, email, phone string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
}

// Notifier is the slice of the notification dispatcher the auth flow uses.
type Notifier interface {
	SendOTP(to, code string) error
	SendVerificationEmail(to, token string) error
}

type UserService struct {
	repo     UserStore
	notifier Notifier
	now      func() time.Time
}

func NewUserService(repo UserStore, notifier Notifier) *UserService {
	return &UserService{repo: repo, notifier: notifier, now: time.Now}
}

func allowedEmailDomain() string {
	domain := os.Getenv("ALLOWED_EMAIL_DOMAIN")
	if domain == "" {
		domain = "gndec.ac.in"
	}
	return domain
}

// validateInstituteEmail checks that the address belongs to the
// institutional domain. Only institute accounts may register.
func validateInstituteEmail(email string) error {
	domain := allowedEmailDomain()
	if !strings.HasSuffix(email, "@"+domain) {
		return &ValidationError{msg: fmt.Sprintf("Only %s email addresses are allowed", domain)}
	}
	return nil
}

// RequestOTP starts phone verification. A placeholder user is created (or
// reused) to carry the challenge; the account stays unusable until both
// verifications complete.
func (s *UserService) RequestOTP(ctx context.Context, email, phone string) error {
	if err := validateInstituteEmail(email); err != nil {
		return err
	}
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}

	owner, err := s.repo.FindVerifiedOwner(ctx, email, phone)
	if err != nil {
		return err
	}
	if owner != nil {
		if owner.Email == email && owner.IsEmailVerified {
			return ErrEmailRegistered
		}
		return ErrPhoneRegistered
	}

	now := s.now()
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	if user == nil {
		user = &User{
			ID:        primitive.NewObjectID(),
			Email:     email,
			Phone:     phone,
			Role:      RoleStudent,
			CreatedAt: now,
		}
		user.PhoneVerification = &OTPChallenge{Code: code, ExpiresAt: now.Add(otpValidity)}
		user.UpdatedAt = now
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return err
		}
	} else {
		user.Phone = phone
		user.IsPhoneVerified = false
		user.PhoneVerification = &OTPChallenge{Code: code, ExpiresAt: now.Add(otpValidity)}
		user.UpdatedAt = now
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return err
		}
	}

	if err := s.notifier.SendOTP(email, code); err != nil {
		log.Println("Failed to send OTP:", err)
		return ErrOTPDelivery
	}
	return nil
}

// VerifyOTP checks the code against the stored challenge. An expired code
// and a wrong code produce the same error on purpose: the response does
// not reveal which condition failed.
func (s *UserService) VerifyOTP(ctx context.Context, email, phone, code string) error {
	user, err := s.repo.FindByEmailAndPhone(ctx, email, phone)
	if err != nil {
		return err
	}
	if user == nil || user.PhoneVerification == nil {
		return ErrInvalidOTP
	}
	challenge := user.PhoneVerification
	// Expiry is strict: a code presented at its expiry instant is rejected.
	if challenge.Code != code || !s.now().Before(challenge.ExpiresAt) {
		return ErrInvalidOTP
	}

	user.IsPhoneVerified = true
	user.PhoneVerification = nil
	user.UpdatedAt = s.now()
	return s.repo.UpdateUser(ctx, user)
}

// Register completes the account: it requires the exact (email, phone)
// pair to be phone-verified, sets credential and profile fields, and
// issues the email verification token.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) error {
	if err := validateInstituteEmail(req.Email); err != nil {
		return err
	}
	if !phonePattern.MatchString(req.Phone) {
		return ErrInvalidPhone
	}

	user, err := s.repo.FindByEmailAndPhone(ctx, req.Email, req.Phone)
	if err != nil {
		return err
	}
	if user == nil || !user.IsPhoneVerified {
		return ErrPhoneUnverified
	}
	if user.IsEmailVerified {
		return ErrEmailRegistered
	}

	// The pending record itself holds the verified phone; only a
	// different account owning either identity blocks registration.
	owner, err := s.repo.FindVerifiedOwner(ctx, req.Email, req.Phone)
	if err != nil {
		return err
	}
	if owner != nil && owner.ID != user.ID {
		if owner.Email == req.Email && owner.IsEmailVerified {
			return ErrEmailRegistered
		}
		return ErrPhoneRegistered
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return err
	}

	role := req.Role
	switch role {
	case RoleStudent, RoleStaff, RoleAdmin:
	default:
		role = RoleStudent
	}

	token, err := GenerateEmailToken(req.Email, emailTokenValidity)
	if err != nil {
		return err
	}

	now := s.now()
	user.Name = req.Name
	user.PasswordHash = hash
	user.Role = role
	user.EmailVerification = &TokenChallenge{Token: token, ExpiresAt: now.Add(emailTokenValidity)}
	user.UpdatedAt = now
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.SendVerificationEmail(user.Email, token); err != nil {
		log.Println("Failed to send verification email:", err)
	}
	return nil
}

// VerifyEmail validates the signed token and the stored challenge,
// then activates the account.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := ValidateJWT(token)
	if err != nil {
		return ErrInvalidEmailToken
	}
	user, err := s.repo.FindByEmail(ctx, claims.Email)
	if err != nil {
		return err
	}
	if user == nil || user.EmailVerification == nil {
		return ErrInvalidEmailToken
	}
	challenge := user.EmailVerification
	if challenge.Token != token || !s.now().Before(challenge.ExpiresAt) {
		return ErrInvalidEmailToken
	}

	user.IsEmailVerified = true
	user.EmailVerification = nil
	user.UpdatedAt = s.now()
	return s.repo.UpdateUser(ctx, user)
}

func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	if err := validateInstituteEmail(email); err != nil {
		return err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	token, err := GenerateEmailToken(email, emailTokenValidity)
	if err != nil {
		return err
	}
	user.EmailVerification = &TokenChallenge{Token: token, ExpiresAt: s.now().Add(emailTokenValidity)}
	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.SendVerificationEmail(email, token); err != nil {
		log.Println("Failed to send verification email:", err)
	}
	return nil
}

// Login authenticates the credentials and issues a session token. The
// verification checks run before the password compare and carry distinct
// messages; an unknown user gets the generic one.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return "", nil, ErrEmailNotVerified
	}
	if !user.IsPhoneVerified {
		return "", nil, ErrPhoneNotVerified
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateJWT(user.ID.Hex(), user.Email, user.Role, sessionValidity)
	if err != nil {
		return "", nil, errors.New("Token not generated")
	}
	return token, user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req UpdateProfileRequest) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.StudentDetails != nil {
		d := req.StudentDetails
		if d.Year != "" {
			user.StudentDetails.Year = d.Year
		}
		if d.UniversityRollNumber != "" {
			user.StudentDetails.UniversityRollNumber = d.UniversityRollNumber
		}
		if d.Branch != "" {
			user.StudentDetails.Branch = d.Branch
		}
		if d.MobileNumber != "" {
			user.StudentDetails.MobileNumber = d.MobileNumber
		}
	}
	if req.CurrentPassword != "" && req.NewPassword != "" {
		if !CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
			return nil, ErrWrongPassword
		}
		hash, err := HashPassword(req.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
