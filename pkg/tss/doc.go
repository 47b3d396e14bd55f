// Package tss implements a two-party threshold ECDSA engine over
// secp256k1. Two mutually distrusting principals, conventionally called
// device and server, jointly generate a single ECDSA public key and jointly
// produce signatures under it without either party ever holding the full
// signing scalar.
//
// The package exposes three session flows (DKG, Sign, Refresh) through the
// identical step/finalize contract implemented by package engine, a local
// keypair codec, a DER/raw-RS signature codec, and (in package backup) a
// Shamir-threshold-encrypted backup/restore subsystem. The cryptographic
// primitives themselves — curve arithmetic, Paillier, zero-knowledge
// proofs, AEAD, Shamir sharing — live in internal/primitives and are
// treated as a narrow, trusted adapter rather than redesigned here.
package tss
