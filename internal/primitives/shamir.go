package primitives

import (
	"errors"
	"io"
	"math/big"
)

// ShamirShare is one point (index, f(index)) on a Shamir polynomial, index
// in [1, 255] (0 is reserved for the secret itself and must never be
// handed out as a share).
type ShamirShare struct {
	Index uint8
	Value Scalar
}

// ShamirSplit draws a degree-(threshold-1) random polynomial over the
// curve's scalar field with f(0) = secret, and returns shares evaluations
// at x = 1..shares. Any threshold of these shares reconstructs secret via
// ShamirCombine; fewer reveal nothing about it.
//
// Grounded on mr-shifu-mpc-lib's core/math/polynomial (NewPolynomial's
// random-coefficient construction, Evaluate's Horner's-method evaluation)
// generalized from that package's curve.Scalar interface to this module's
// concrete Scalar type.
func ShamirSplit(r io.Reader, secret Scalar, threshold, shares int) ([]ShamirShare, error) {
	if threshold < 1 || shares < threshold || shares > 255 {
		return nil, errors.New("primitives: shamir split requires 1 <= threshold <= shares <= 255")
	}
	coeffs := make([]Scalar, threshold)
	coeffs[0] = secret
	for i := 1; i < threshold; i++ {
		c, err := RandomScalar(r)
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	out := make([]ShamirShare, shares)
	for idx := 1; idx <= shares; idx++ {
		x := ScalarFromBigInt(big.NewInt(int64(idx)))
		out[idx-1] = ShamirShare{Index: uint8(idx), Value: evalPolynomial(coeffs, x)}
	}
	return out, nil
}

// evalPolynomial evaluates f(x) = coeffs[0] + coeffs[1]*x + ... via
// Horner's method.
func evalPolynomial(coeffs []Scalar, x Scalar) Scalar {
	result := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		result = result.Mul(x).Add(coeffs[i])
	}
	return result
}

// ShamirCombine reconstructs f(0) from a set of shares via Lagrange
// interpolation at zero. The caller is responsible for supplying at least
// the original threshold's worth of shares; supplying fewer silently
// reconstructs the wrong value rather than erroring, matching the
// information-theoretic guarantee that fewer-than-threshold shares carry
// no signal to detect this from.
func ShamirCombine(shares []ShamirShare) (Scalar, error) {
	if len(shares) == 0 {
		return Scalar{}, errors.New("primitives: shamir combine requires at least one share")
	}
	seen := make(map[uint8]bool, len(shares))
	for _, s := range shares {
		if s.Index == 0 {
			return Scalar{}, errors.New("primitives: shamir share index 0 is reserved for the secret")
		}
		if seen[s.Index] {
			return Scalar{}, errors.New("primitives: shamir combine given duplicate share index")
		}
		seen[s.Index] = true
	}

	result := ScalarFromBigInt(big.NewInt(0))
	for j, sj := range shares {
		xj := ScalarFromBigInt(big.NewInt(int64(sj.Index)))
		num := ScalarFromBigInt(big.NewInt(1))
		den := ScalarFromBigInt(big.NewInt(1))
		for m, sm := range shares {
			if m == j {
				continue
			}
			xm := ScalarFromBigInt(big.NewInt(int64(sm.Index)))
			num = num.Mul(xm)
			den = den.Mul(xm.Sub(xj))
		}
		if den.IsZero() {
			return Scalar{}, errors.New("primitives: shamir combine found a zero denominator, duplicate x-coordinate")
		}
		lj := num.Mul(den.Inverse())
		result = result.Add(sj.Value.Mul(lj))
	}
	return result, nil
}
