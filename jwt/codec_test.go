package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		AccessTTL:     15 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "identity-test",
		Audience:      "api",
	}
}

func TestMintAndVerifyHS256(t *testing.T) {
	codec, err := NewCodec(hs256Config())
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	token, err := codec.Mint("user-1", "teacher", true, true)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Role != "teacher" {
		t.Fatalf("role = %q, want teacher", claims.Role)
	}
	if !claims.IsVerified || !claims.EmailVerified {
		t.Fatalf("verification claims = %v/%v, want true/true", claims.IsVerified, claims.EmailVerified)
	}
	if claims.Issuer != "identity-test" {
		t.Fatalf("issuer = %q, want identity-test", claims.Issuer)
	}
}

func TestMintAndVerifyEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}

	codec, err := NewCodec(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	token, err := codec.Mint("user-2", "student", false, false)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != "user-2" || claims.Role != "student" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	codec, err := NewCodec(hs256Config())
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	codec.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := codec.Mint("user-3", "student", false, false)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	codec.now = time.Now
	if _, err := codec.Verify(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	codec, err := NewCodec(hs256Config())
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	token, err := codec.Mint("user-4", "student", false, false)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := codec.Verify(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	codec, err := NewCodec(hs256Config())
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	other := hs256Config()
	other.PrivateKey = []byte("ffffffffffffffffffffffffffffffff")
	otherCodec, err := NewCodec(other)
	if err != nil {
		t.Fatalf("NewCodec(other) error: %v", err)
	}

	token, err := otherCodec.Mint("user-5", "student", false, false)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}
	if _, err := codec.Verify(token); err == nil {
		t.Fatal("expected token signed with a different key to be rejected")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	mintCfg := hs256Config()
	mintCfg.Issuer = "someone-else"
	minter, err := NewCodec(mintCfg)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	codec, err := NewCodec(hs256Config())
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	token, err := minter.Mint("user-6", "student", false, false)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}
	if _, err := codec.Verify(token); err == nil {
		t.Fatal("expected wrong-issuer token to be rejected")
	}
}

func TestNewCodecRejectsInvalidConfig(t *testing.T) {
	if _, err := NewCodec(Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}); err == nil {
		t.Fatal("expected zero TTL rejection")
	}
	if _, err := NewCodec(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected missing hs256 secret rejection")
	}
	if _, err := NewCodec(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected missing ed25519 public key rejection")
	}
	if _, err := NewCodec(Config{AccessTTL: time.Minute, SigningMethod: "rs256"}); err == nil {
		t.Fatal("expected unsupported method rejection")
	}
}
