package tss

import (
	"encoding/asn1"
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// rawRSSize is the fixed width of the raw-RS encoding: two 32-byte
// big-endian coordinates.
const rawRSSize = 2 * 32

// derSignature is the ASN.1 shape of an ECDSA signature: SEQUENCE {
// INTEGER r, INTEGER s }. encoding/asn1 already implements DER's
// minimal-length, non-negative-integer encoding rules, so it is the
// correct tool for this translation rather than a hand-rolled parser.
type derSignature struct {
	R, S *big.Int
}

// DERToRawRS translates a DER-encoded ECDSA signature into spec.md §4.4's
// raw-RS encoding: r and s as left-zero-padded 32-byte big-endian
// integers, concatenated. Low-S normalization is not performed here; the
// signing protocol is responsible if a caller requires it.
func DERToRawRS(der []byte) ([]byte, error) {
	var sig derSignature
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil || len(rest) != 0 {
		return nil, NewError(ErrKindInvalidArgument, "signature.DERToRawRS", errors.New("malformed DER signature"))
	}
	if err := validateScalarRange(sig.R); err != nil {
		return nil, NewError(ErrKindInvalidArgument, "signature.DERToRawRS", err)
	}
	if err := validateScalarRange(sig.S); err != nil {
		return nil, NewError(ErrKindInvalidArgument, "signature.DERToRawRS", err)
	}

	out := make([]byte, rawRSSize)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:])
	return out, nil
}

// RawRSToDER translates a raw-RS signature into DER.
func RawRSToDER(raw []byte) ([]byte, error) {
	if len(raw) != rawRSSize {
		return nil, NewError(ErrKindInvalidArgument, "signature.RawRSToDER", errors.New("raw-rs signature must be 64 bytes"))
	}
	r := new(big.Int).SetBytes(raw[:32])
	s := new(big.Int).SetBytes(raw[32:])
	if err := validateScalarRange(r); err != nil {
		return nil, NewError(ErrKindInvalidArgument, "signature.RawRSToDER", err)
	}
	if err := validateScalarRange(s); err != nil {
		return nil, NewError(ErrKindInvalidArgument, "signature.RawRSToDER", err)
	}
	return asn1.Marshal(derSignature{R: r, S: s})
}

// validateScalarRange rejects zero and out-of-range values using
// secp256k1's own scalar reduction as the source of truth for "in range".
func validateScalarRange(v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return errors.New("signature component must be positive")
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(v.Bytes()); overflow {
		return errors.New("signature component out of range")
	}
	return nil
}
