package primitives

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Order is the secp256k1 group order n.
var Order = secp256k1.S256().N

// CoordSize is the byte width of a scalar for secp256k1 (ceil(log256 n)).
const CoordSize = 32

// Scalar is an element of Z_n, n the curve order.
type Scalar struct {
	v *secp256k1.ModNScalar
}

// RandomScalar draws a uniform non-zero scalar using r as the entropy
// source. r is always the context-injected RNG, never crypto/rand
// directly, so that a host can make the whole engine deterministic for
// testing or audit replay.
func RandomScalar(r io.Reader) (Scalar, error) {
	var buf [CoordSize]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Scalar{}, fmt.Errorf("primitives: draw random scalar: %w", err)
		}
		var s secp256k1.ModNScalar
		overflow := s.SetByteSlice(buf[:])
		if overflow || s.IsZero() {
			continue
		}
		return Scalar{v: &s}, nil
	}
}

// ScalarFromBytes decodes a big-endian, left-zero-padded 32-byte scalar.
// It rejects values that do not reduce to themselves modulo n (i.e. values
// >= n), matching the codec's "unknown/invalid encoding -> InvalidArgument"
// discipline at the caller.
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != CoordSize {
		return Scalar{}, errors.New("primitives: scalar must be 32 bytes")
	}
	var s secp256k1.ModNScalar
	overflow := s.SetByteSlice(b)
	if overflow {
		return Scalar{}, errors.New("primitives: scalar out of range")
	}
	return Scalar{v: &s}, nil
}

// Bytes returns the big-endian, left-zero-padded 32-byte encoding of s.
func (s Scalar) Bytes() []byte {
	b := s.v.Bytes()
	return b[:]
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool { return s.v.IsZero() }

// Add returns s + o mod n.
func (s Scalar) Add(o Scalar) Scalar {
	var out secp256k1.ModNScalar
	out.Set(s.v)
	out.Add(o.v)
	return Scalar{v: &out}
}

// Sub returns s - o mod n.
func (s Scalar) Sub(o Scalar) Scalar {
	var negO secp256k1.ModNScalar
	negO.Set(o.v).Negate()
	var out secp256k1.ModNScalar
	out.Set(s.v)
	out.Add(&negO)
	return Scalar{v: &out}
}

// Mul returns s * o mod n.
func (s Scalar) Mul(o Scalar) Scalar {
	var out secp256k1.ModNScalar
	out.Set(s.v)
	out.Mul(o.v)
	return Scalar{v: &out}
}

// Negate returns -s mod n.
func (s Scalar) Negate() Scalar {
	var out secp256k1.ModNScalar
	out.Set(s.v).Negate()
	return Scalar{v: &out}
}

// Inverse returns s^-1 mod n. Zero has no inverse and yields zero, so
// callers must check for zero first (the signing protocol checks
// delta != 0 before calling this).
func (s Scalar) Inverse() Scalar {
	var out secp256k1.ModNScalar
	out.InverseValNonConst(s.v)
	return Scalar{v: &out}
}

// BigInt returns s as a non-negative big.Int < n.
func (s Scalar) BigInt() *big.Int {
	b := s.Bytes()
	return new(big.Int).SetBytes(b)
}

// ScalarFromBigInt reduces x modulo n and returns the resulting Scalar.
func ScalarFromBigInt(x *big.Int) Scalar {
	m := new(big.Int).Mod(x, Order)
	b := make([]byte, CoordSize)
	m.FillBytes(b)
	s, _ := ScalarFromBytes(b)
	return s
}

// Point is a secp256k1 group element.
type Point struct {
	v *secp256k1.JacobianPoint
}

// BasePointMul returns s*G.
func BasePointMul(s Scalar) Point {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s.v, &result)
	result.ToAffine()
	return Point{v: &result}
}

// PointMul returns s*p.
func PointMul(s Scalar, p Point) Point {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(s.v, p.v, &result)
	result.ToAffine()
	return Point{v: &result}
}

// Add returns p + o.
func (p Point) Add(o Point) Point {
	var result secp256k1.JacobianPoint
	secp256k1.AddNonConst(p.v, o.v, &result)
	result.ToAffine()
	return Point{v: &result}
}

// IsInfinity reports whether p is the point at infinity.
func (p Point) IsInfinity() bool {
	return p.v.X.IsZero() && p.v.Y.IsZero()
}

// CompressedBytes returns the 33-byte SEC1 compressed encoding of p.
func (p Point) CompressedBytes() []byte {
	pk := secp256k1.NewPublicKey(&p.v.X, &p.v.Y)
	return pk.SerializeCompressed()
}

// PointFromCompressedBytes decodes a 33-byte SEC1 compressed point.
func PointFromCompressedBytes(b []byte) (Point, error) {
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return Point{}, fmt.Errorf("primitives: parse point: %w", err)
	}
	var j secp256k1.JacobianPoint
	pk.AsJacobian(&j)
	j.ToAffine()
	return Point{v: &j}, nil
}

// XCoordScalar returns p.X reduced modulo the curve order n, as required
// to compute ECDSA's r = R.x mod n.
func (p Point) XCoordScalar() Scalar {
	xBytes := p.v.X.Bytes()
	return ScalarFromBigInt(new(big.Int).SetBytes(xBytes[:]))
}

// SecureRandom returns crypto/rand, the default entropy source used when
// the host has not injected its own RNG callback.
func SecureRandom() io.Reader { return rand.Reader }
