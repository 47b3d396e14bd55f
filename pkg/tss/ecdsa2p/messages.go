package ecdsa2p

import (
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
)

// commitMsg is round one of any commit-reveal exchange: a hiding, binding
// commitment to a point the sender will reveal next round, matching the
// commit/reveal shape original_source/cpp/src/bridge.cpp's DkgSessionImpl
// uses for X_i before ever putting the point on the wire.
type commitMsg struct {
	Commit []byte
}

// commitTo hashes payload with a fresh random nonce, returning the
// commitment to send now and the nonce to reveal next round.
func commitTo(r io.Reader, payload []byte) (commit, nonce []byte, err error) {
	nonce = make([]byte, 32)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, nil, err
	}
	h := blake3.New()
	h.Write([]byte("maany-mpc/ecdsa2p/commit"))
	h.Write(nonce)
	h.Write(payload)
	return h.Sum(nil), nonce, nil
}

func checkCommit(commit, nonce, payload []byte) bool {
	h := blake3.New()
	h.Write([]byte("maany-mpc/ecdsa2p/commit"))
	h.Write(nonce)
	h.Write(payload)
	return bytesEqual(h.Sum(nil), commit)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// dkgRevealMsg is round two of DKG: the point committed to in round one,
// a Schnorr proof of knowledge of its exponent, the nonce to open the
// round-one commitment, and the Paillier public key this party generated.
type dkgRevealMsg struct {
	Nonce     []byte
	X         []byte
	Proof     []byte
	PaillierN []byte
}

// dkgKeyMsg is round three of DKG: this party's own share encrypted under
// its own Paillier key, cached by the counterparty as Keypair.CKey. Refresh
// reuses the same shape for its final fresh-key exchange.
type dkgKeyMsg struct {
	PaillierN []byte
	CKey      []byte
}

// refreshRevealMsg is round two of Refresh: the raw re-randomization mask
// committed to in round one. Unlike DKG's X_i/Gamma_i, the mask carries no
// confidentiality requirement of its own — revealing it plainly leaks
// nothing about either party's share — so it travels as a bare scalar
// rather than a point with a proof of knowledge.
type refreshRevealMsg struct {
	Nonce []byte
	Delta []byte
}

// signRevealMsg is round two of Sign: the per-session nonce point Gamma_i
// committed to in round one, its proof of knowledge, and a fresh
// encryption of gamma_i under this party's own Paillier key for the
// counterparty's delta-MtA sender role.
type signRevealMsg struct {
	Nonce       []byte
	Gamma       []byte
	Proof       []byte
	GammaCipher []byte
}

// signMtAMsg is round three of Sign: the two MtA challenges this party's
// sender half produced, one converting the cross term of the ephemeral
// k/gamma pair (delta) and one reusing the DKG-time cached c_key for the
// cross term against the static key share (sigma).
type signMtAMsg struct {
	DeltaD []byte
	SigmaD []byte
}

// signRevealShareMsg carries a scalar share of delta (round four) or of
// the final signature component s (round five); both rounds are a bare
// scalar reveal so one wire shape serves both.
type signRevealShareMsg struct {
	Share []byte
}

func marshal(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

func unmarshal(b []byte, v interface{}) error {
	return cbor.Unmarshal(b, v)
}

// sendRecv is the Send-then-Recv round shape every protocol driver in this
// package uses: encode and hand off the outbound message, then block for
// the counterparty's reply to the same round.
func sendRecv(w Worker, out interface{}, in interface{}) error {
	outBytes, err := marshal(out)
	if err != nil {
		return tss.NewError(tss.ErrKindGeneral, "ecdsa2p.sendRecv", err)
	}
	if err := w.Send(outBytes); err != nil {
		return tss.NewError(tss.ErrKindIo, "ecdsa2p.sendRecv", err)
	}
	inBytes, err := w.Recv()
	if err != nil {
		return tss.NewError(tss.ErrKindIo, "ecdsa2p.sendRecv", err)
	}
	if err := unmarshal(inBytes, in); err != nil {
		return tss.NewError(tss.ErrKindInvalidArgument, "ecdsa2p.sendRecv", err)
	}
	return nil
}

// pointBytes and scalarBytes are the one-line wire encodings the drivers
// use for points and scalars in their messages.
func pointBytes(p primitives.Point) []byte   { return p.CompressedBytes() }
func scalarBytes(s primitives.Scalar) []byte { return s.Bytes() }
