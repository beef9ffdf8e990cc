package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
	"github.com/diagnosis/hotel-frontdesk/pkg/auth"
	"github.com/diagnosis/hotel-frontdesk/pkg/events"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
	"github.com/diagnosis/hotel-frontdesk/pkg/metrics"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/mailer"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/otp"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/repository"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Me(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error)
	// ForgotPassword returns the message to show the caller.
	ForgotPassword(ctx context.Context, req *domain.ForgotPasswordRequest) (string, error)
	ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error
}

// Options carries the knobs that come from configuration.
type Options struct {
	RegistrationKey string
	OTPTTL          time.Duration
	OTPRequests     int
	OTPWindow       time.Duration
	HashParams      *argon2id.Params
}

type authService struct {
	users    repository.UserRepository
	limiter  repository.RateLimitRepository
	notifier mailer.Notifier
	issuer   *auth.Issuer
	eventBus events.Publisher
	opts     Options
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	limiter repository.RateLimitRepository,
	notifier mailer.Notifier,
	issuer *auth.Issuer,
	eventBus events.Publisher,
	opts Options,
) AuthService {
	if opts.HashParams == nil {
		opts.HashParams = argon2id.DefaultParams
	}
	return &authService{
		users:    users,
		limiter:  limiter,
		notifier: notifier,
		issuer:   issuer,
		eventBus: eventBus,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if !req.HasRequiredFields() {
		return nil, apperr.New(apperr.Validation, apperr.CodeMissingFields, domain.MsgAllFieldsRequired)
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.opts.RegistrationKey)) != 1 {
		return nil, apperr.NewForbidden(domain.MsgInvalidRegistration)
	}
	if msg := req.Validate(); msg != "" {
		return nil, apperr.NewValidation(msg)
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("check existing user: %w", err))
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, apperr.CodeDuplicateAccount, domain.MsgUserExists)
	}

	passwordHash, err := argon2id.CreateHash(req.Password, s.opts.HashParams)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Create(ctx, req.Username, req.Email, passwordHash)
	if err != nil {
		if dup := duplicateAccount(err); dup != nil {
			return nil, dup
		}
		return nil, apperr.NewInternal(fmt.Errorf("create user: %w", err))
	}

	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("issue token: %w", err))
	}

	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		RegisteredAt: s.now(),
	})
	logger.InfoContext(ctx, "User registered", "user_id", user.ID)

	return &domain.AuthResponse{Message: domain.MsgRegistered, Token: token, User: user.ToUserInfo()}, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if req.Email == "" || req.Password == "" {
		return nil, apperr.New(apperr.Validation, apperr.CodeMissingFields, domain.MsgEmailPasswordRequired)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperr.NewValidation(domain.MsgInvalidCredentials)
	}

	ok, err := s.checkPassword(ctx, user, req.Password)
	if err != nil {
		return nil, apperr.NewInternal(err)
	}
	if !ok {
		return nil, apperr.NewValidation(domain.MsgInvalidCredentials)
	}

	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("issue token: %w", err))
	}

	return &domain.AuthResponse{Message: domain.MsgLoggedIn, Token: token, User: user.ToUserInfo()}, nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// checkPassword verifies argon2id hashes, and bcrypt hashes carried over from
// earlier accounts, which are upgraded to argon2id on a successful match.
func (s *authService) checkPassword(ctx context.Context, user *domain.User, password string) (bool, error) {
	if !isBcrypt(user.PasswordHash) {
		ok, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("compare password: %w", err)
		}
		return ok, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare legacy password: %w", err)
	}

	upgraded, err := argon2id.CreateHash(password, s.opts.HashParams)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, upgraded)
	}
	if err != nil {
		logger.WarnContext(ctx, "Failed to upgrade legacy password hash", "user_id", user.ID, "error", err)
	}
	return true, nil
}

func (s *authService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("find user %d: %w", userID, err))
	}
	if user == nil {
		return nil, apperr.NewNotFound(domain.MsgUserNotFound)
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	req.Normalize()
	if msg := req.Validate(); msg != "" {
		return nil, apperr.NewValidation(msg)
	}

	user, err := s.users.UpdateProfile(ctx, userID, req)
	if err != nil {
		if dup := duplicateAccount(err); dup != nil {
			return nil, dup
		}
		return nil, apperr.NewInternal(fmt.Errorf("update profile %d: %w", userID, err))
	}
	if user == nil {
		return nil, apperr.NewNotFound(domain.MsgUserNotFound)
	}
	return user, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req *domain.ForgotPasswordRequest) (string, error) {
	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		return "", apperr.NewValidation(domain.MsgEmailRequired)
	}
	if err := s.limit(ctx, "forgot:"+email); err != nil {
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", apperr.NewInternal(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return "", apperr.NewNotFound(domain.MsgUserNotFound)
	}

	code, err := otp.Generate()
	if err != nil {
		return "", apperr.NewInternal(fmt.Errorf("generate otp: %w", err))
	}
	now := s.now()
	if err := s.users.SetResetOTP(ctx, user.ID, otp.Hash(code), now.Add(s.opts.OTPTTL)); err != nil {
		return "", apperr.NewInternal(fmt.Errorf("store otp: %w", err))
	}
	metrics.IncOTPIssued()

	message := domain.MsgOTPSent
	delivered := true
	if err := s.notifier.SendOTP(ctx, user.Email, code); err != nil {
		// The stored code stays valid; the user can retry delivery.
		logger.ErrorContext(ctx, "Failed to deliver password reset email", "user_id", user.ID, "error", err)
		message = domain.MsgOTPNotDelivered
		delivered = false
	}

	s.publish(ctx, events.PasswordResetRequested, events.PasswordResetEvent{
		UserID:     user.ID,
		Email:      user.Email,
		Delivered:  delivered,
		OccurredAt: now,
	})
	return message, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	req.Normalize()
	if req.Email == "" {
		return apperr.NewValidation(domain.MsgEmailRequired)
	}
	if req.OTP == "" || req.NewPassword == "" {
		return apperr.New(apperr.Validation, apperr.CodeMissingFields, domain.MsgOTPRequired)
	}
	if len(req.NewPassword) < domain.MinPasswordLength {
		return apperr.NewValidation(domain.MsgPasswordTooShort)
	}
	if err := s.limit(ctx, "reset:"+req.Email); err != nil {
		return err
	}

	passwordHash, err := argon2id.CreateHash(req.NewPassword, s.opts.HashParams)
	if err != nil {
		return apperr.NewInternal(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	userID, err := s.users.ConsumeResetOTP(ctx, req.Email, otp.Hash(req.OTP), passwordHash, now)
	if errors.Is(err, repository.ErrInvalidOTP) {
		metrics.IncOTPRedeem(false)
		return apperr.New(apperr.Validation, apperr.CodeInvalidOTP, domain.MsgInvalidOTP)
	}
	if err != nil {
		return apperr.NewInternal(fmt.Errorf("consume otp: %w", err))
	}
	metrics.IncOTPRedeem(true)

	s.publish(ctx, events.PasswordResetCompleted, events.PasswordResetEvent{
		UserID:     userID,
		Email:      req.Email,
		Delivered:  true,
		OccurredAt: now,
	})
	logger.InfoContext(ctx, "Password reset", "user_id", userID)
	return nil
}

// limit fails open when the limiter store is unavailable.
func (s *authService) limit(ctx context.Context, key string) error {
	if s.limiter == nil || s.opts.OTPRequests <= 0 {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, key, s.opts.OTPRequests, s.opts.OTPWindow)
	if err != nil {
		logger.WarnContext(ctx, "Rate limit check failed", "error", err)
		return nil
	}
	if !allowed {
		return apperr.New(apperr.TooManyRequests, apperr.CodeRateLimited, domain.MsgTooManyRequests)
	}
	return nil
}

func duplicateAccount(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.New(apperr.Conflict, apperr.CodeDuplicateAccount, domain.MsgUserExists)
	case errors.Is(err, repository.ErrDuplicateUsername):
		return apperr.New(apperr.Conflict, apperr.CodeDuplicateAccount, domain.MsgUsernameTaken)
	}
	return nil
}

func (s *authService) publish(ctx context.Context, subject string, event interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
