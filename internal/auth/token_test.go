package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestTokenService(t *testing.T, secret string) *TokenService {
	t.Helper()
	s, err := NewTokenService(TokenConfig{
		Secret: []byte(secret),
		TTL:    30 * time.Minute,
		Issuer: "taskguard-test",
	})
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}
	return s
}

func TestTokenService_IssueVerify(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "super-secret")

	for _, userID := range []int64{1, 42, 1 << 40} {
		issued, err := s.Issue(userID)
		if err != nil {
			t.Fatalf("Issue(%d) failed: %v", userID, err)
		}
		if issued.ID == "" {
			t.Error("issued token should carry an id")
		}

		got, err := s.Verify(issued.Token)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if got != userID {
			t.Errorf("user id mismatch: got %d, want %d", got, userID)
		}
	}
}

func TestTokenService_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "super-secret")
	issuedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return issuedAt }

	issued, err := s.Issue(7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !issued.ExpiresAt.Equal(issuedAt.Add(30 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want issue time + 30m", issued.ExpiresAt)
	}

	s.now = func() time.Time { return issuedAt.Add(29 * time.Minute) }
	if _, err := s.Verify(issued.Token); err != nil {
		t.Fatalf("token should still be valid before expiry: %v", err)
	}

	s.now = func() time.Time { return issuedAt.Add(31 * time.Minute) }
	_, err = s.Verify(issued.Token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
	if !errors.Is(err, ErrInvalidToken) {
		t.Error("ErrExpiredToken should also match ErrInvalidToken")
	}
}

func TestTokenService_TamperedSignature(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "super-secret")
	issued, err := s.Issue(7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(issued.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = s.Verify(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if errors.Is(err, ErrExpiredToken) {
		t.Error("tampered token must not be reported as expired")
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	t.Parallel()

	issued, err := newTestTokenService(t, "right-secret").Issue(7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := newTestTokenService(t, "wrong-secret").Verify(issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_RejectsForgedClaims(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "super-secret")
	now := time.Now()

	sign := func(method jwt.SigningMethod, claims jwt.Claims, key any) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	valid := jwt.RegisteredClaims{
		Subject:   "7",
		Issuer:    "taskguard-test",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	badSubject := valid
	badSubject.Subject = "seven"
	zeroSubject := valid
	zeroSubject.Subject = "0"
	otherIssuer := valid
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"none algorithm", sign(jwt.SigningMethodNone, valid, jwt.UnsafeAllowNoneSignatureType)},
		{"HS512", sign(jwt.SigningMethodHS512, valid, []byte("super-secret"))},
		{"missing expiry", sign(jwt.SigningMethodHS256, noExpiry, []byte("super-secret"))},
		{"non-numeric subject", sign(jwt.SigningMethodHS256, badSubject, []byte("super-secret"))},
		{"zero subject", sign(jwt.SigningMethodHS256, zeroSubject, []byte("super-secret"))},
		{"other issuer", sign(jwt.SigningMethodHS256, otherIssuer, []byte("super-secret"))},
		{"malformed", "not.a.jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := s.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenService(TokenConfig{}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}

	s, err := NewTokenService(TokenConfig{Secret: []byte("k")})
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}
	if s.TTL() != DefaultTokenTTL {
		t.Errorf("TTL = %v, want default %v", s.TTL(), DefaultTokenTTL)
	}
}
