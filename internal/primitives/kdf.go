package primitives

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey runs HKDF-SHA256 over secret, domain-separating by info, and
// returns size bytes. No production path calls it: the backup subsystem
// hands its random DEK's bytes to the AEAD directly.
func DeriveKey(secret, salt, info []byte, size int) ([]byte, error) {
	kdf := hkdf.New(sha256.New, secret, salt, info)
	out := make([]byte, size)
	if _, err := io.ReadFull(kdf, out); err != nil {
		return nil, err
	}
	return out, nil
}
