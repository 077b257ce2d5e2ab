package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eventboard/eventboard/internal/apperror"
)

// resetTokenBytes is the number of random bytes in a reset token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const resetTokenBytes = 32

// errInvalidCredentials is the single answer for every failed login factor.
func errInvalidCredentials() *apperror.AppError {
	return apperror.NewUnauthorized("invalid credentials")
}

// MailSender sends plain-text mail. Implemented by the smtp plugin; defined
// here so the auth package does not import it.
type MailSender interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
}

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	AdminLogin(ctx context.Context, input LoginInput) (*AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
}

// authService implements AuthService.
type authService struct {
	repo     UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	otp      OTPVerifier
	mail     MailSender
	resetTTL time.Duration
	now      func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, hasher PasswordHasher, tokens TokenIssuer,
	otp OTPVerifier, mail MailSender, resetTTL time.Duration) AuthService {
	return &authService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		otp:      otp,
		mail:     mail,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// Register creates an account and returns a session token. Only one admin
// account may exist; the admin receives a TOTP secret at creation.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	if input.IsAdmin {
		exists, err := s.repo.AdminExists(ctx)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("checking admin: %w", err))
		}
		if exists {
			return nil, apperror.NewConflict("Admin already exists")
		}
	}

	// Check before doing expensive hashing. The unique index still catches
	// a concurrent registration of the same email.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := s.now().UTC()
	user := &User{
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      input.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.IsAdmin {
		secret := s.otp.NewSecret()
		user.OTPSecret = &secret
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if apperror.IsConflict(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing token: %w", err))
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
		slog.Bool("is_admin", user.IsAdmin),
	)

	result := &AuthResult{Token: token}
	if user.OTPSecret != nil {
		result.OTPAuthURL = s.otp.ProvisioningURI(user.Email, *user.OTPSecret)
	}
	return result, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password produce the identical error.
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.authenticate(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issue(user, "user logged in")
}

// AdminLogin is Login plus the admin flag and a valid TOTP code. Any failed
// factor yields the same invalid-credentials error as a bad password.
func (s *authService) AdminLogin(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.authenticate(ctx, input)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin || user.OTPSecret == nil || !s.otp.Verify(*user.OTPSecret, input.OTP) {
		slog.Warn("admin login rejected", slog.Int64("user_id", user.ID))
		return nil, errInvalidCredentials()
	}
	return s.issue(user, "admin logged in")
}

// ForgotPassword issues a single-use reset token and mails it to the user.
// If the mail cannot be sent the stored token is withdrawn again.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("User not found")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	token, err := generateResetToken()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("generating reset token: %w", err))
	}

	expiresAt := s.now().UTC().Add(s.resetTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, hashToken(token), expiresAt); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing reset token: %w", err))
	}

	body := fmt.Sprintf("Use this token to reset your password: %s\n\nThe token expires at %s.",
		token, expiresAt.Format(time.RFC1123))
	if err := s.mail.SendMail(ctx, []string{user.Email}, "Password Reset", body); err != nil {
		if clearErr := s.repo.ClearResetToken(ctx, user.ID); clearErr != nil {
			slog.Error("failed to withdraw reset token after mail failure",
				slog.Int64("user_id", user.ID),
				slog.Any("error", clearErr),
			)
		}
		return apperror.NewInternal(fmt.Errorf("sending reset mail: %w", err))
	}

	slog.Info("password reset requested", slog.Int64("user_id", user.ID))
	return nil
}

// ResetPassword redeems a reset token. The token is consumed by the same
// statement that stores the new password, so it works at most once.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	tokenHash := hashToken(token)

	user, err := s.repo.FindByResetToken(ctx, tokenHash)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("Invalid reset token")
		}
		return apperror.NewInternal(fmt.Errorf("finding reset token: %w", err))
	}

	if user.ResetTokenExpiresAt == nil || s.now().After(*user.ResetTokenExpiresAt) {
		if err := s.repo.ClearResetToken(ctx, user.ID); err != nil {
			slog.Warn("failed to clear expired reset token",
				slog.Int64("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		return apperror.NewNotFound("Invalid reset token")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.ResetPassword(ctx, user.ID, tokenHash, hash); err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("Invalid reset token")
		}
		return apperror.NewInternal(fmt.Errorf("resetting password: %w", err))
	}

	slog.Info("password reset completed", slog.Int64("user_id", user.ID))
	return nil
}

// UpdatePassword changes the password of an authenticated user after
// re-checking the current one.
func (s *authService) UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewUnauthorized("Unauthorized access")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return apperror.NewUnauthorized("Old password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password updated", slog.Int64("user_id", user.ID))
	return nil
}

// authenticate resolves the user for email and checks the password.
func (s *authService) authenticate(ctx context.Context, input LoginInput) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, errInvalidCredentials()
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, errInvalidCredentials()
	}
	return user, nil
}

func (s *authService) issue(user *User, event string) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing token: %w", err))
	}
	slog.Info(event, slog.Int64("user_id", user.ID))
	return &AuthResult{Token: token}, nil
}

// --- Helpers ---

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateResetToken creates a cryptographically random hex-encoded token.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken returns the hex SHA-256 of a reset token, the form stored in
// the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
