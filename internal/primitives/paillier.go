package primitives

import (
	cryptorand "crypto/rand"
	"errors"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
)

// PaillierBits is the bit length of each of the two primes generated for a
// fresh Paillier modulus, giving a ~3072-bit N. This mirrors the modulus
// size the teacher's cgo layer requests from cb-mpc's base_paillier (see
// cb-mpc/src/cbmpc/crypto/base_paillier.h).
const PaillierBits = 1536

// PaillierPublicKey is a Paillier modulus N, together with the saferith
// Modulus wrappers every ciphertext-space operation runs under. Paillier
// is additively homomorphic: Dec(Enc(a) (x) Enc(b)) = a+b mod N, and
// Dec(Enc(a)^k) = k*a mod N. The two-party signing protocol's MtA step
// (mta.go) is built entirely out of those two properties.
type PaillierPublicKey struct {
	n     *big.Int
	n2    *big.Int
	nNat  *saferith.Nat
	nMod  *saferith.Modulus
	n2Nat *saferith.Nat
	n2Mod *saferith.Modulus
}

// PaillierPrivateKey adds the decryption trapdoor (lambda, mu) to a
// PaillierPublicKey; the primes p, q are not kept.
type PaillierPrivateKey struct {
	PaillierPublicKey
	lambda *big.Int
	mu     *big.Int
}

// GeneratePaillierKey draws two random primes from r and derives a fresh
// Paillier keypair. r is always the context-injected RNG (see
// RandomScalar's doc), never crypto/rand directly.
func GeneratePaillierKey(r io.Reader) (*PaillierPrivateKey, error) {
	var p, q *big.Int
	for {
		var err error
		p, err = randPrime(r, PaillierBits)
		if err != nil {
			return nil, err
		}
		q, err = randPrime(r, PaillierBits)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) != 0 {
			break
		}
	}

	n := new(big.Int).Mul(p, q)

	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	qMinus1 := new(big.Int).Sub(q, big.NewInt(1))
	phi := new(big.Int).Mul(pMinus1, qMinus1)
	gcd := new(big.Int).GCD(nil, nil, pMinus1, qMinus1)
	lambda := new(big.Int).Div(phi, gcd) // lcm(p-1, q-1)

	mu := new(big.Int).ModInverse(lambda, n)
	if mu == nil {
		return nil, errors.New("primitives: paillier keygen produced non-invertible lambda, retry")
	}

	pub := newPaillierPublicKey(n)
	return &PaillierPrivateKey{PaillierPublicKey: pub, lambda: lambda, mu: mu}, nil
}

func newPaillierPublicKey(n *big.Int) PaillierPublicKey {
	n2 := new(big.Int).Mul(n, n)
	nNat := natFromBig(n)
	n2Nat := natFromBig(n2)
	return PaillierPublicKey{
		n:     n,
		n2:    n2,
		nNat:  nNat,
		nMod:  saferith.ModulusFromNat(nNat),
		n2Nat: n2Nat,
		n2Mod: saferith.ModulusFromNat(n2Nat),
	}
}

// PaillierPublicKeyFromN reconstructs a public key from its modulus N, as
// decoded from a keypair blob or a peer's DKG message.
func PaillierPublicKeyFromN(n []byte) *PaillierPublicKey {
	pub := newPaillierPublicKey(new(big.Int).SetBytes(n))
	return &pub
}

// N returns the big-endian encoding of the modulus N.
func (pk *PaillierPublicKey) N() []byte { return pk.n.Bytes() }

// PrivateParams returns the decryption trapdoor (lambda, mu) for
// serialization. Callers must zeroize both once done with them.
func (sk *PaillierPrivateKey) PrivateParams() (lambda, mu *big.Int) {
	return sk.lambda, sk.mu
}

// PaillierPrivateKeyFromParams reconstructs a private key from its
// serialized modulus and trapdoor, as decoded from a keypair blob.
func PaillierPrivateKeyFromParams(n, lambda, mu []byte) *PaillierPrivateKey {
	pub := newPaillierPublicKey(new(big.Int).SetBytes(n))
	return &PaillierPrivateKey{
		PaillierPublicKey: pub,
		lambda:            new(big.Int).SetBytes(lambda),
		mu:                new(big.Int).SetBytes(mu),
	}
}

// Encrypt returns Enc_pk(m) using r as the blinding entropy source. m must
// be in [0, N).
func (pk *PaillierPublicKey) Encrypt(r io.Reader, m *big.Int) (*big.Int, error) {
	if m.Sign() < 0 || m.Cmp(pk.n) >= 0 {
		return nil, errors.New("primitives: paillier plaintext out of range")
	}
	rnd, err := randCoprime(r, pk.n)
	if err != nil {
		return nil, err
	}

	// c = (1 + m*N mod N^2) * r^N mod N^2, the standard g=N+1 simplification
	// of Enc(m,r) = g^m * r^N mod N^2 (binomial expansion of (1+N)^m).
	oneMN := new(big.Int).Mul(m, pk.n)
	oneMN.Add(oneMN, big.NewInt(1))
	oneMN.Mod(oneMN, pk.n2)

	rToN := new(saferith.Nat).Exp(natFromBig(rnd), pk.nNat, pk.n2Mod)
	c := new(saferith.Nat).ModMul(natFromBig(oneMN), rToN, pk.n2Mod)
	return bigFromNat(c), nil
}

// AddCiphertexts returns Enc(a+b mod N) given Enc(a) and Enc(b).
func (pk *PaillierPublicKey) AddCiphertexts(c1, c2 *big.Int) *big.Int {
	out := new(saferith.Nat).ModMul(natFromBig(c1), natFromBig(c2), pk.n2Mod)
	return bigFromNat(out)
}

// MulScalar returns Enc(k*a mod N) given Enc(a) and a plaintext scalar k.
// k need not be reduced mod N; it is used as the exponent directly.
func (pk *PaillierPublicKey) MulScalar(c *big.Int, k *big.Int) *big.Int {
	kk := k
	if kk.Sign() < 0 {
		kk = new(big.Int).Mod(k, pk.n)
	}
	out := new(saferith.Nat).Exp(natFromBig(c), natFromBig(kk), pk.n2Mod)
	return bigFromNat(out)
}

// Decrypt recovers the plaintext m in [0, N) encrypted under sk.
func (sk *PaillierPrivateKey) Decrypt(c *big.Int) (*big.Int, error) {
	if c.Sign() < 0 || c.Cmp(sk.n2) >= 0 {
		return nil, errors.New("primitives: paillier ciphertext out of range")
	}
	u := new(saferith.Nat).Exp(natFromBig(c), natFromBig(sk.lambda), sk.n2Mod)
	uBig := bigFromNat(u)

	// L(u) = (u-1)/N, an exact integer division (not modular: saferith's
	// API only models arithmetic under a fixed Modulus, so this one step
	// bridges through math/big).
	l := new(big.Int).Sub(uBig, big.NewInt(1))
	l.Div(l, sk.n)

	m := new(big.Int).Mul(l, sk.mu)
	m.Mod(m, sk.n)
	return m, nil
}

func natFromBig(x *big.Int) *saferith.Nat {
	return new(saferith.Nat).SetBytes(x.Bytes())
}

func bigFromNat(x *saferith.Nat) *big.Int {
	return new(big.Int).SetBytes(x.Bytes())
}

// randPrime draws a random prime of the given bit length from r.
func randPrime(r io.Reader, bits int) (*big.Int, error) {
	return cryptorand.Prime(r, bits)
}

// randCoprime draws a uniform value in [1, n) coprime to n, retrying on the
// (overwhelmingly unlikely for random prime-product n) collision case.
func randCoprime(r io.Reader, n *big.Int) (*big.Int, error) {
	one := big.NewInt(1)
	for {
		v, err := cryptorand.Int(r, n)
		if err != nil {
			return nil, err
		}
		if v.Sign() == 0 {
			continue
		}
		gcd := new(big.Int).GCD(nil, nil, v, n)
		if gcd.Cmp(one) == 0 {
			return v, nil
		}
	}
}
