package primitives_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
)

func TestShamirSplitCombineRoundTrip(t *testing.T) {
	secret, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	shares, err := primitives.ShamirSplit(rand.Reader, secret, 3, 5)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(shares) != 5 {
		t.Fatalf("expected 5 shares, got %d", len(shares))
	}

	combined, err := primitives.ShamirCombine(shares[:3])
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if combined.BigInt().Cmp(secret.BigInt()) != 0 {
		t.Fatalf("combined secret %s != original %s", combined.BigInt(), secret.BigInt())
	}
}

func TestShamirCombineAcceptsAnyThresholdSubset(t *testing.T) {
	secret, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	shares, err := primitives.ShamirSplit(rand.Reader, secret, 2, 4)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	subset := []primitives.ShamirShare{shares[1], shares[3]}
	combined, err := primitives.ShamirCombine(subset)
	if err != nil {
		t.Fatalf("combine non-contiguous subset: %v", err)
	}
	if combined.BigInt().Cmp(secret.BigInt()) != 0 {
		t.Fatalf("combined secret from a non-contiguous subset != original")
	}
}

func TestShamirCombineRejectsDuplicateIndices(t *testing.T) {
	secret, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	shares, err := primitives.ShamirSplit(rand.Reader, secret, 2, 3)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	dup := []primitives.ShamirShare{shares[0], shares[0]}
	if _, err := primitives.ShamirCombine(dup); err == nil {
		t.Fatalf("expected combine to reject duplicate share indices")
	}
}

func TestShamirCombineRejectsReservedZeroIndex(t *testing.T) {
	zero := primitives.ShamirShare{Index: 0, Value: primitives.ScalarFromBigInt(big.NewInt(0))}
	if _, err := primitives.ShamirCombine([]primitives.ShamirShare{zero}); err == nil {
		t.Fatalf("expected combine to reject a share at the reserved index 0")
	}
}

func TestShamirSplitRejectsInvalidParameters(t *testing.T) {
	secret, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	if _, err := primitives.ShamirSplit(rand.Reader, secret, 0, 3); err == nil {
		t.Fatalf("expected split to reject threshold 0")
	}
	if _, err := primitives.ShamirSplit(rand.Reader, secret, 4, 3); err == nil {
		t.Fatalf("expected split to reject shares < threshold")
	}
}
