package primitives

import (
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// AEADKeySize is the key size chacha20poly1305 requires.
const AEADKeySize = chacha20poly1305.KeySize

// Seal authenticates and encrypts plaintext under key, binding associatedData
// into the tag. It draws its nonce from r (the context-injected RNG) and
// frames the result as nonce ‖ tag ‖ ciphertext, matching spec.md §4.5's
// payload layout and original_source/cpp/include/bridge.h's
// "BufferOwner payload; // nonce || tag || ciphertext" — not Go's own
// chacha20poly1305.Seal append order, which puts the tag last.
func Seal(r io.Reader, key, plaintext, associatedData []byte) ([]byte, error) {
	if len(key) != AEADKeySize {
		return nil, errors.New("primitives: aead key must be 32 bytes")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, nonce, plaintext, associatedData)
	ciphertext, tag := sealed[:len(sealed)-aead.Overhead()], sealed[len(sealed)-aead.Overhead():]

	out := make([]byte, 0, len(nonce)+len(tag)+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open verifies and decrypts a blob produced by Seal, reversing its
// nonce ‖ tag ‖ ciphertext framing back into the ciphertext ‖ tag order
// Go's chacha20poly1305.Open expects.
func Open(key, sealed, associatedData []byte) ([]byte, error) {
	if len(key) != AEADKeySize {
		return nil, errors.New("primitives: aead key must be 32 bytes")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("primitives: sealed blob shorter than nonce+tag")
	}
	nonce := sealed[:aead.NonceSize()]
	tag := sealed[aead.NonceSize() : aead.NonceSize()+aead.Overhead()]
	ciphertext := sealed[aead.NonceSize()+aead.Overhead():]

	reordered := make([]byte, 0, len(ciphertext)+len(tag))
	reordered = append(reordered, ciphertext...)
	reordered = append(reordered, tag...)
	return aead.Open(nil, nonce, reordered, associatedData)
}
