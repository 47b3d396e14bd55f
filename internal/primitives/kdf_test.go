package primitives_test

import (
	"bytes"
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
)

func TestDeriveKeyIsDeterministic(t *testing.T) {
	secret := []byte("a shared master secret")
	salt := []byte("salt")
	info := []byte("maany-mpc/backup-dek")

	a, err := primitives.DeriveKey(secret, salt, info, 32)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := primitives.DeriveKey(secret, salt, info, 32)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("DeriveKey is not deterministic for identical inputs")
	}
}

func TestDeriveKeyDiffersByInfo(t *testing.T) {
	secret := []byte("a shared master secret")
	salt := []byte("salt")

	a, err := primitives.DeriveKey(secret, salt, []byte("domain-a"), 32)
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	b, err := primitives.DeriveKey(secret, salt, []byte("domain-b"), 32)
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("DeriveKey produced the same output for different domain-separation info")
	}
}

func TestDeriveKeyRespectsRequestedSize(t *testing.T) {
	out, err := primitives.DeriveKey([]byte("secret"), nil, []byte("info"), 48)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(out) != 48 {
		t.Fatalf("expected 48 bytes, got %d", len(out))
	}
}
