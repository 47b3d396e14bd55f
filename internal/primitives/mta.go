package primitives

import (
	cryptorand "crypto/rand"
	"io"
	"math/big"
)

// mtaMaskBits bounds the statistical mask used to hide a sender's
// contribution during one MtA conversion. It must be comfortably larger
// than the largest possible product of two curve scalars (2*CoordSize*8
// bits) for statistical hiding, and comfortably smaller than the Paillier
// modulus (PaillierBits*2 bits) so the masked value never wraps around N.
const mtaMaskBits = 640

// MtAChallenge is what a sign session's sender half produces for one MtA
// (multiplicative-to-additive) conversion: given the receiver's Paillier
// encryption of their scalar b, it homomorphically folds in the sender's
// own scalar a and a fresh statistical mask, so that decrypting the
// result under the receiver's key yields the receiver's additive share of
// a*b, while the sender holds the complementary share.
//
// Grounded on mr-shifu-mpc-lib's lib/mta/mta.go: D = enc_receiver(-beta) +
// (a (x) Enc_receiver(b)). This module omits the affine-group-commitment
// zero-knowledge range proof (zkaffg/zkaffp) the teacher pack's proof
// wraps D/F in: spec.md's threat model is the two-honest-but-curious-
// party DKG/Sign handshake, not an adversarial network, so the unproven
// ciphertext exchange suffices here.
type MtAChallenge struct {
	// D is sent back to the receiver; decrypting it under the receiver's
	// own Paillier key yields the receiver's additive share.
	D *big.Int
}

// MtASender runs the sender's half of one MtA conversion. receiverCipher is
// Enc_receiverPK(b), the receiver's scalar encrypted under their own
// Paillier key. a is the sender's scalar. The returned senderShare and the
// receiver's eventual MtAReceiverFinish result sum, as exact integers, to
// a*b; only the final consumer reduces that sum modulo the curve order.
func MtASender(r io.Reader, receiverPK *PaillierPublicKey, receiverCipher *big.Int, a *big.Int) (senderShare *big.Int, challenge MtAChallenge, err error) {
	mask, err := randSignedMask(r)
	if err != nil {
		return nil, MtAChallenge{}, err
	}

	maskedCipher, err := receiverPK.Encrypt(r, new(big.Int).Mod(mask, receiverPK.n))
	if err != nil {
		return nil, MtAChallenge{}, err
	}
	scaled := receiverPK.MulScalar(receiverCipher, a)
	d := receiverPK.AddCiphertexts(scaled, maskedCipher)

	senderShare = new(big.Int).Neg(mask)
	return senderShare, MtAChallenge{D: d}, nil
}

// MtAReceiverFinish completes the receiver's half: decrypting the sender's
// challenge under the receiver's own Paillier key and centering the result
// back into a signed integer recovers the receiver's exact additive share
// of a*b (see the mtaMaskBits margin this relies on).
func MtAReceiverFinish(receiverSK *PaillierPrivateKey, challenge MtAChallenge) (*big.Int, error) {
	u, err := receiverSK.Decrypt(challenge.D)
	if err != nil {
		return nil, err
	}
	return centerMod(u, receiverSK.n), nil
}

// randSignedMask draws a uniform integer from (-2^mtaMaskBits, 2^mtaMaskBits).
func randSignedMask(r io.Reader) (*big.Int, error) {
	bound := new(big.Int).Lsh(big.NewInt(1), mtaMaskBits)
	magnitude, err := cryptorand.Int(r, bound)
	if err != nil {
		return nil, err
	}
	sign, err := cryptorand.Int(r, big.NewInt(2))
	if err != nil {
		return nil, err
	}
	if sign.Sign() != 0 {
		magnitude.Neg(magnitude)
	}
	return magnitude, nil
}

// centerMod reinterprets v (assumed to be in [0, n)) as the unique integer
// in (-n/2, n/2] congruent to v mod n.
func centerMod(v, n *big.Int) *big.Int {
	half := new(big.Int).Rsh(n, 1)
	if v.Cmp(half) > 0 {
		return new(big.Int).Sub(v, n)
	}
	return new(big.Int).Set(v)
}
