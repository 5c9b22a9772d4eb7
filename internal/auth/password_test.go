package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	sharedauth "resume-analyzer/internal/shared/auth"
	"resume-analyzer/internal/users"
)

type capturedMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []capturedMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, capturedMail{to: to, subject: subject, body: body})
	return nil
}

func newTestPasswordService(t *testing.T) (*PasswordService, *fakeMailer, *time.Time) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mailer := &fakeMailer{}
	svc := NewPasswordService(users.NewMemoryRepo(), NewMemoryResetStore(), mailer, "https://app.example.com/reset")
	svc.Cost = bcrypt.MinCost
	svc.Now = func() time.Time { return now }
	return svc, mailer, &now
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestPasswordService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "Ada@Example.com", "secret1", " Ada Lovelace ")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !strings.HasPrefix(session.User.ID, "local:") {
		t.Fatalf("expected local user id, got %q", session.User.ID)
	}
	if session.User.Email != "ada@example.com" || session.User.FullName != "Ada Lovelace" {
		t.Fatalf("unexpected user %+v", session.User)
	}
	claims, err := sharedauth.VerifyJWT(session.Token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != session.User.ID {
		t.Fatalf("token subject %q, want %q", claims.Subject, session.User.ID)
	}

	login, err := svc.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != session.User.ID {
		t.Fatalf("login returned %q, want %q", login.User.ID, session.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestPasswordService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "bad email", email: "not-an-email", password: "secret1", want: ErrInvalidEmail},
		{name: "display name form", email: "Ada <ada@example.com>", password: "secret1", want: ErrInvalidEmail},
		{name: "short password", email: "ada@example.com", password: "12345", want: ErrWeakPassword},
		{name: "password beyond bcrypt limit", email: "ada@example.com", password: strings.Repeat("x", 73), want: ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.email, tt.password, ""); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestPasswordService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "ADA@example.com", "secret2", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestPasswordService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// OAuth users have no password hash.
	_ = svc.Users.Upsert(ctx, users.User{ID: "google:1", Email: "grace@example.com"})

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong-password"},
		{"nobody@example.com", "secret1"},
		{"grace@example.com", ""},
		{"garbage", "secret1"},
	} {
		if _, err := svc.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%q): expected ErrInvalidCredentials, got %v", tc.email, err)
		}
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, mailer, _ := newTestPasswordService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.RequestReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "ada@example.com" {
		t.Fatalf("expected one reset mail, got %+v", mailer.sent)
	}
	token := tokenFromBody(t, mailer.sent[0].body)

	if err := svc.ConfirmReset(ctx, token, "new-secret"); err != nil {
		t.Fatalf("ConfirmReset: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "new-secret"); err != nil {
		t.Fatalf("new password login: %v", err)
	}
	if err := svc.ConfirmReset(ctx, token, "another-secret"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("token reuse: expected ErrInvalidResetToken, got %v", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	svc, mailer, now := newTestPasswordService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.RequestReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	token := tokenFromBody(t, mailer.sent[0].body)

	*now = now.Add(2 * time.Hour)
	if err := svc.ConfirmReset(ctx, token, "new-secret"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestRequestResetUnknownEmailSendsNothing(t *testing.T) {
	svc, mailer, _ := newTestPasswordService(t)
	if err := svc.RequestReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no mail, got %+v", mailer.sent)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if hashToken("abc") != hashToken("abc") {
		t.Fatalf("hash must be deterministic")
	}
	if hashToken("abc") == "abc" {
		t.Fatalf("hash must not echo the token")
	}
}

func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	_, after, ok := strings.Cut(body, "token=")
	if !ok {
		t.Fatalf("no token in body %q", body)
	}
	token, _, _ := strings.Cut(after, "\n")
	return token
}
