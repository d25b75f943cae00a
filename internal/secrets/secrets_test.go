package secrets

import (
	"strings"
	"testing"
)

func TestNewProducesValidDistinctSecrets(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		secret, err := New()
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := Validate(secret); err != nil {
			t.Fatalf("fresh secret invalid: %v", err)
		}
		if seen[secret] {
			t.Fatal("duplicate secret generated")
		}
		seen[secret] = true
	}
}

func TestHashIsStableAndHex(t *testing.T) {
	a := Hash("some-secret")
	b := Hash("some-secret")
	if a != b {
		t.Fatal("hash not deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64", len(a))
	}
	if a == Hash("other-secret") {
		t.Fatal("distinct inputs collided")
	}
}

func TestEqual(t *testing.T) {
	h := Hash("secret")
	if !Equal(h, h) {
		t.Fatal("equal digests reported unequal")
	}
	if Equal(h, Hash("other")) {
		t.Fatal("unequal digests reported equal")
	}
	if Equal(h, h[:32]) {
		t.Fatal("length mismatch reported equal")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"not base64": "!!!not-base64url!!!",
		"too short":  "c2hvcnQ",
		"too long":   strings.Repeat("A", 96),
	}
	for name, input := range cases {
		if err := Validate(input); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
