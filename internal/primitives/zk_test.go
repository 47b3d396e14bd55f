package primitives_test

import (
	"crypto/rand"
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
)

func TestProveVerifyDLRoundTrip(t *testing.T) {
	x, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	p := primitives.BasePointMul(x)

	proof, err := primitives.ProveDL(rand.Reader, p, x, []byte("session-1"), 7)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if err := primitives.VerifyDL(p, proof, []byte("session-1"), 7); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyDLRejectsWrongSessionID(t *testing.T) {
	x, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	p := primitives.BasePointMul(x)
	proof, err := primitives.ProveDL(rand.Reader, p, x, []byte("session-1"), 7)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if err := primitives.VerifyDL(p, proof, []byte("session-2"), 7); err == nil {
		t.Fatalf("expected verification to fail for a mismatched session ID")
	}
}

func TestVerifyDLRejectsWrongAux(t *testing.T) {
	x, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	p := primitives.BasePointMul(x)
	proof, err := primitives.ProveDL(rand.Reader, p, x, []byte("session-1"), 7)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if err := primitives.VerifyDL(p, proof, []byte("session-1"), 8); err == nil {
		t.Fatalf("expected verification to fail for a mismatched aux value")
	}
}

func TestVerifyDLRejectsProofForWrongPoint(t *testing.T) {
	x, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	p := primitives.BasePointMul(x)
	proof, err := primitives.ProveDL(rand.Reader, p, x, []byte("session-1"), 0)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	other, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	wrongPoint := primitives.BasePointMul(other)
	if err := primitives.VerifyDL(wrongPoint, proof, []byte("session-1"), 0); err == nil {
		t.Fatalf("expected verification to fail against an unrelated point")
	}
}

func TestDLProofMarshalUnmarshalRoundTrip(t *testing.T) {
	x, err := primitives.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}
	p := primitives.BasePointMul(x)
	proof, err := primitives.ProveDL(rand.Reader, p, x, []byte("session-1"), 1)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	blob, err := proof.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := primitives.UnmarshalDLProof(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := primitives.VerifyDL(p, restored, []byte("session-1"), 1); err != nil {
		t.Fatalf("verify after marshal round trip: %v", err)
	}
}
