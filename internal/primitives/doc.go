// Package primitives is the narrow crypto adapter spec.md §2 calls the
// "trusted external collaborator": secp256k1 curve arithmetic, Paillier
// encryption with its MtA (multiplicative-to-additive) conversion, a
// Schnorr zero-knowledge proof of knowledge of discrete log, AEAD sealing,
// key derivation, and Shamir secret sharing over the curve's scalar field.
//
// This package does not implement a generalized cryptographic library; it
// implements exactly the calls pkg/tss/ecdsa2p and pkg/tss/backup make, in
// the same spirit as the teacher's cgo bindings exist only to serve
// pkg/cbmpc's call sites.
package primitives
