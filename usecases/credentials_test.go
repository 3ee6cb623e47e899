package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"safr-server/auth"
	"safr-server/repositories"
	"safr-server/testutil"

	"golang.org/x/crypto/bcrypt"
)

func newCredentialStore(t *testing.T) (*CredentialStore, *auth.Issuer) {
	t.Helper()
	d := testutil.NewDB(t)
	issuer := testutil.NewIssuer(t)
	return NewCredentialStore(d, repositories.NewUserPgRepository(d), issuer, bcrypt.MinCost), issuer
}

func TestCredentialStore_RegisterAuthenticateVerify(t *testing.T) {
	cs, _ := newCredentialStore(t)
	ctx := context.Background()

	user, err := cs.Register(ctx, RegisterInput{Username: "johndoe", Password: "a_very_secure_password"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.HashedPassword == "a_very_secure_password" || !strings.HasPrefix(user.HashedPassword, "$2") {
		t.Fatalf("password must be stored as a bcrypt hash")
	}

	tok, err := cs.Authenticate(ctx, "johndoe", "a_very_secure_password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if d := time.Until(tok.ExpiresAt); d < 29*time.Minute || d > 31*time.Minute {
		t.Fatalf("token should expire in ~30 minutes, got %v", d)
	}

	got, err := cs.Verify(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("verify returned user %d, want %d", got.ID, user.ID)
	}
}

func TestCredentialStore_RegisterConflict(t *testing.T) {
	cs, _ := newCredentialStore(t)
	ctx := context.Background()

	if _, err := cs.Register(ctx, RegisterInput{Username: "johndoe", Email: "j@example.com", Password: "pw"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []RegisterInput{
		{Username: "johndoe", Password: "pw"},
		{Username: "JohnDoe", Password: "pw"},
		{Username: "other", Email: "j@example.com", Password: "pw"},
	}
	for _, in := range cases {
		if _, err := cs.Register(ctx, in); !errors.Is(err, ErrConflict) {
			t.Fatalf("Register(%+v): expected ErrConflict, got %v", in, err)
		}
	}
}

func TestCredentialStore_RegisterValidation(t *testing.T) {
	cs, _ := newCredentialStore(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Username: "  ", Password: "pw"},
		{Username: "alice", Password: ""},
		{Username: "alice", Password: strings.Repeat("x", 73)},
	}
	for _, in := range cases {
		if _, err := cs.Register(ctx, in); !errors.Is(err, ErrValidation) {
			t.Fatalf("Register(%+v): expected ErrValidation, got %v", in, err)
		}
	}
}

func TestCredentialStore_AuthenticateFailures(t *testing.T) {
	cs, _ := newCredentialStore(t)
	ctx := context.Background()
	if _, err := cs.Register(ctx, RegisterInput{Username: "johndoe", Password: "right"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, tc := range []struct{ user, pass string }{
		{"johndoe", "wrong"},
		{"johndoe", ""},
		{"nobody", "right"},
	} {
		_, err := cs.Authenticate(ctx, tc.user, tc.pass)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Authenticate(%q, %q): expected ErrUnauthorized, got %v", tc.user, tc.pass, err)
		}
		if err.Error() != "incorrect username or password" {
			t.Fatalf("failures must not reveal which part was wrong: %q", err.Error())
		}
	}
}

func TestCredentialStore_VerifyRejects(t *testing.T) {
	cs, issuer := newCredentialStore(t)
	ctx := context.Background()
	user, err := cs.Register(ctx, RegisterInput{Username: "johndoe", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	expired, _, err := issuer.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).Issue(user.ID, "johndoe")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ghost, _, _ := issuer.Issue(user.ID+100, "ghost")
	mismatched, _, _ := issuer.Issue(user.ID, "someoneelse")
	other, _ := auth.NewIssuer("another-secret", time.Minute)
	forged, _, _ := other.Issue(user.ID, "johndoe")

	for name, tok := range map[string]string{
		"empty":      "",
		"garbage":    "not.a.token",
		"expired":    expired,
		"ghost":      ghost,
		"mismatched": mismatched,
		"forged":     forged,
	} {
		if _, err := cs.Verify(ctx, tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s token: expected ErrUnauthorized, got %v", name, err)
		}
	}
}
