package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func verified(v bool) *bool { return &v }

func adminClaims() AdminClaims {
	return AdminClaims{
		UserID:   "u-1",
		Email:    "admin@example.com",
		Role:     "admin",
		Verified: verified(true),
		Type:     "admin_access",
	}
}

func TestParseUnverifiedReadsClaims(t *testing.T) {
	secret := []byte("secret-secret-secret-secret")
	signer, err := NewManager(Config{SigningMethod: MethodHS256, VerifyKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := signer.Sign(adminClaims(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	reader, err := NewManager(Config{})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if reader.Verifies() {
		t.Fatal("zero config must not verify signatures")
	}
	claims, err := reader.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u-1" || claims.Verified == nil || !*claims.Verified || claims.ExpiresAt == nil {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseExpiredTokenStillParses(t *testing.T) {
	secret := []byte("secret-secret-secret-secret")
	m, _ := NewManager(Config{SigningMethod: MethodHS256, VerifyKey: secret})

	c := adminClaims()
	c.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-time.Hour))
	token, err := m.Sign(c, 0)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("expected expired token to parse, got %v", err)
	}
	if !claims.ExpiresAt.Before(time.Now()) {
		t.Fatalf("expected past expiry, got %v", claims.ExpiresAt)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, VerifyKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, adminClaims())
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseEd25519AndIssuer(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, VerifyKey: pub, SignKey: priv, Issuer: "coursemaster"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Sign(adminClaims(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	c := adminClaims()
	c.Issuer = "other"
	other, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
	if _, err := m.Parse(other); !errors.Is(err, ErrWrongIssuer) {
		t.Fatalf("expected ErrWrongIssuer, got %v", err)
	}

	_, otherPriv := newEdKeys(t)
	forged, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, adminClaims()).SignedString(otherPriv)
	if _, err := m.Parse(forged); err == nil {
		t.Fatal("expected token signed by another key to fail")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	tests := []Config{
		{SigningMethod: "rs512"},
		{SigningMethod: MethodHS256},
		{SigningMethod: MethodEd25519},
		{SigningMethod: MethodEd25519, VerifyKey: []byte("short")},
	}
	for i, cfg := range tests {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestSignWithoutKey(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, _ := NewManager(Config{SigningMethod: MethodEd25519, VerifyKey: pub})
	if _, err := m.Sign(adminClaims(), time.Minute); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}

	none, _ := NewManager(Config{})
	if _, err := none.Sign(adminClaims(), time.Minute); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
}
