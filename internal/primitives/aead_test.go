package primitives_test

import (
	"crypto/rand"
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, primitives.AEADKeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("random key: %v", err)
	}
	return key
}

func TestAEADSealOpenRoundTrip(t *testing.T) {
	key := randomKey(t)
	plaintext := []byte("a local share, exported")
	aad := []byte("label|key-id|2|3")

	sealed, err := primitives.Seal(rand.Reader, key, plaintext, aad)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	opened, err := primitives.Open(key, sealed, aad)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Fatalf("opened plaintext %q != original %q", opened, plaintext)
	}
}

func TestAEADOpenRejectsTamperedCiphertext(t *testing.T) {
	key := randomKey(t)
	sealed, err := primitives.Seal(rand.Reader, key, []byte("secret"), []byte("aad"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := primitives.Open(key, sealed, []byte("aad")); err == nil {
		t.Fatalf("expected open to fail on tampered ciphertext")
	}
}

func TestAEADOpenRejectsMismatchedAssociatedData(t *testing.T) {
	key := randomKey(t)
	sealed, err := primitives.Seal(rand.Reader, key, []byte("secret"), []byte("aad-a"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := primitives.Open(key, sealed, []byte("aad-b")); err == nil {
		t.Fatalf("expected open to fail on mismatched associated data")
	}
}

func TestAEADRejectsWrongKeySize(t *testing.T) {
	shortKey := make([]byte, 16)
	if _, err := primitives.Seal(rand.Reader, shortKey, []byte("x"), nil); err == nil {
		t.Fatalf("expected Seal to reject a short key")
	}
	if _, err := primitives.Open(shortKey, []byte("anything"), nil); err == nil {
		t.Fatalf("expected Open to reject a short key")
	}
}
