package primitives_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
)

func TestMtAConversionSumsToProduct(t *testing.T) {
	receiverSK, err := primitives.GeneratePaillierKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate receiver key: %v", err)
	}

	a := big.NewInt(123456789)
	b := big.NewInt(987654321)

	receiverCipher, err := receiverSK.Encrypt(rand.Reader, b)
	if err != nil {
		t.Fatalf("encrypt receiver scalar: %v", err)
	}

	senderShare, challenge, err := primitives.MtASender(rand.Reader, &receiverSK.PaillierPublicKey, receiverCipher, a)
	if err != nil {
		t.Fatalf("mta sender: %v", err)
	}
	receiverShare, err := primitives.MtAReceiverFinish(receiverSK, challenge)
	if err != nil {
		t.Fatalf("mta receiver finish: %v", err)
	}

	sum := new(big.Int).Add(senderShare, receiverShare)
	want := new(big.Int).Mul(a, b)
	if sum.Cmp(want) != 0 {
		t.Fatalf("senderShare + receiverShare = %s, want a*b = %s", sum, want)
	}
}

func TestMtAConversionIsBlindToNegativeSenderScalar(t *testing.T) {
	receiverSK, err := primitives.GeneratePaillierKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate receiver key: %v", err)
	}

	a := big.NewInt(-42)
	b := big.NewInt(1000)

	receiverCipher, err := receiverSK.Encrypt(rand.Reader, b)
	if err != nil {
		t.Fatalf("encrypt receiver scalar: %v", err)
	}

	senderShare, challenge, err := primitives.MtASender(rand.Reader, &receiverSK.PaillierPublicKey, receiverCipher, a)
	if err != nil {
		t.Fatalf("mta sender: %v", err)
	}
	receiverShare, err := primitives.MtAReceiverFinish(receiverSK, challenge)
	if err != nil {
		t.Fatalf("mta receiver finish: %v", err)
	}

	sum := new(big.Int).Add(senderShare, receiverShare)
	want := new(big.Int).Mul(a, b)
	if sum.Cmp(want) != 0 {
		t.Fatalf("senderShare + receiverShare = %s, want a*b = %s", sum, want)
	}
}
