package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	sharedauth "resume-analyzer/internal/shared/auth"
	"resume-analyzer/internal/shared/telemetry"
	"resume-analyzer/internal/users"
)

const (
	minPasswordLength = 6
	// bcrypt rejects input longer than 72 bytes.
	maxPasswordBytes  = 72
	defaultResetTTL   = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = users.ErrEmailTaken
	ErrInvalidEmail       = errors.New("a valid email address is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
	ErrInvalidResetToken  = errors.New("reset token is invalid or expired")
)

// Session is the result of a successful sign-in.
type Session struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}

// PasswordService implements email/password accounts and password resets.
type PasswordService struct {
	Users    users.Repo
	Resets   ResetStore
	Mailer   Mailer
	ResetURL string
	ResetTTL time.Duration
	Cost     int
	Now      func() time.Time
}

func NewPasswordService(repo users.Repo, resets ResetStore, mailer Mailer, resetURL string) *PasswordService {
	return &PasswordService{
		Users:    repo,
		Resets:   resets,
		Mailer:   mailer,
		ResetURL: resetURL,
		ResetTTL: defaultResetTTL,
		Cost:     bcrypt.DefaultCost,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a local account and signs the caller in.
func (s *PasswordService) Register(ctx context.Context, email, password, fullName string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if err := validatePassword(password); err != nil {
		return Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := users.User{
		ID:           "local:" + uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: string(hash),
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return Session{}, err
	}
	telemetry.Info("auth.register", map[string]any{"user_id": user.ID})
	return s.session(user)
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *PasswordService) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if user.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user)
}

// RequestReset mails a reset link when the email belongs to a local account.
// It reports success either way.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}
	user, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		telemetry.Info("auth.reset_unknown_email", nil)
		return nil
	}
	if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	reset := PasswordReset{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.resetTTL()),
	}
	if err := s.Resets.Save(ctx, reset); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	body := fmt.Sprintf("Use this link to reset your password: %s?token=%s\nThe link expires in %s.",
		strings.TrimRight(s.ResetURL, "?"), token, s.resetTTL())
	if err := s.Mailer.Send(ctx, user.Email, "Reset your password", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ConfirmReset sets a new password using a token issued by RequestReset.
func (s *PasswordService) ConfirmReset(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	userID, err := s.Resets.Consume(ctx, hashToken(token), s.now())
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	telemetry.Info("auth.password_reset", map[string]any{"user_id": userID})
	return nil
}

func (s *PasswordService) session(user users.User) (Session, error) {
	token, err := sharedauth.SignJWT(sharedauth.Claims{
		Email:            user.Email,
		Name:             user.FullName,
		Picture:          user.PictureURL,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	})
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (s *PasswordService) cost() int {
	if s.Cost <= 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

func (s *PasswordService) resetTTL() time.Duration {
	if s.ResetTTL <= 0 {
		return defaultResetTTL
	}
	return s.ResetTTL
}

func (s *PasswordService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func newResetToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
