package ecdsa2p

import (
	"context"
	"errors"
	"math/big"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
)

// DKGParams configures a fresh distributed key generation, grounded on the
// teacher's pkg/cbmpc/ecdsa2p.DKGParams shape.
type DKGParams struct {
	// Curve must be tss.CurveSecp256k1; any other value reports
	// ErrKindUnsupported (spec.md §4.2.1's "curve (must be secp256k1)").
	// The zero value is CurveSecp256k1, so a caller that never sets this
	// field gets the only curve this module implements.
	Curve tss.Curve
	// Scheme must be tss.SchemeECDSA2P; any other value reports
	// ErrKindUnsupported (spec.md §4.2.1's "scheme (must be ecdsa-2p)").
	// The zero value is SchemeECDSA2P.
	Scheme tss.Scheme
	// SessionID binds this run's Schnorr proofs to a caller-chosen
	// transcript identifier, preventing cross-session replay (spec.md
	// §4.2's DKG invariants).
	SessionID []byte
	// KeyID is the application-supplied identifier spec.md §3 describes:
	// 32 bytes, all-zero when unset. Unlike the joint public key, this
	// module never derives it — whatever the caller passes here is what
	// ends up in the resulting Keypair.KeyID.
	KeyID [32]byte
	// Label is copied verbatim into the resulting Keypair.Label.
	Label string
}

var errUnsupportedCurve = errors.New("unsupported curve: this module implements secp256k1 only")
var errUnsupportedScheme = errors.New("unsupported scheme: this module implements ecdsa-2p only")

// DKGResult is DKG's output: the completed two-party keypair half.
type DKGResult struct {
	Key *tss.Keypair
}

// NewDKG starts a DKG session for the given role. Drive it to completion
// by alternating Step with the transport, then call DKGFinalize.
func NewDKG(ctx *tss.Context, kind tss.Kind, params DKGParams) *Driver {
	return newDriver(func(w Worker) (interface{}, error) {
		key, err := runDKG(w, ctx, kind, params)
		if err != nil {
			return nil, err
		}
		return &DKGResult{Key: key}, nil
	})
}

// DKGFinalize extracts the completed keypair from a Driver returned by
// NewDKG, once Step has reported tss.StepDone.
func DKGFinalize(d *Driver) (*DKGResult, error) {
	res, err := d.finalize()
	if err != nil {
		return nil, err
	}
	return res.(*DKGResult), nil
}

func runDKG(w Worker, ctx *tss.Context, kind tss.Kind, params DKGParams) (*tss.Keypair, error) {
	if params.Curve != tss.CurveSecp256k1 {
		return nil, tss.NewError(tss.ErrKindUnsupported, "ecdsa2p.DKG", errUnsupportedCurve)
	}
	if params.Scheme != tss.SchemeECDSA2P {
		return nil, tss.NewError(tss.ErrKindUnsupported, "ecdsa2p.DKG", errUnsupportedScheme)
	}

	log := ctx.Logger().With("op", "dkg", "kind", kind.String())
	rng := ctx.RNG()

	xShare, err := primitives.RandomScalar(rng)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindRng, "ecdsa2p.DKG", err)
	}
	xPoint := primitives.BasePointMul(xShare)

	commit, nonce, err := commitTo(rng, pointBytes(xPoint))
	if err != nil {
		return nil, tss.NewError(tss.ErrKindRng, "ecdsa2p.DKG", err)
	}

	var peerCommit commitMsg
	if err := sendRecv(w, commitMsg{Commit: commit}, &peerCommit); err != nil {
		return nil, err
	}
	log.Debug(context.Background(), "dkg round 1 complete")

	paillierSK, err := primitives.GeneratePaillierKey(rng)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.DKG", err)
	}

	proof, err := primitives.ProveDL(rng, xPoint, xShare, params.SessionID, uint64(kind))
	if err != nil {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.DKG", err)
	}
	proofBytes, err := proof.MarshalBinary()
	if err != nil {
		return nil, tss.NewError(tss.ErrKindGeneral, "ecdsa2p.DKG", err)
	}

	reveal := dkgRevealMsg{
		Nonce:     nonce,
		X:         pointBytes(xPoint),
		Proof:     proofBytes,
		PaillierN: paillierSK.N(),
	}
	var peerReveal dkgRevealMsg
	if err := sendRecv(w, reveal, &peerReveal); err != nil {
		return nil, err
	}

	if !checkCommit(peerCommit.Commit, peerReveal.Nonce, peerReveal.X) {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.DKG", errCommitMismatch)
	}
	peerPoint, err := primitives.PointFromCompressedBytes(peerReveal.X)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "ecdsa2p.DKG", err)
	}
	peerProof, err := primitives.UnmarshalDLProof(peerReveal.Proof)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "ecdsa2p.DKG", err)
	}
	if err := primitives.VerifyDL(peerPoint, peerProof, params.SessionID, uint64(kind.Peer())); err != nil {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.DKG", err)
	}
	log.Debug(context.Background(), "dkg round 2 complete")

	ownCipher, err := paillierSK.Encrypt(rng, xShare.BigInt())
	if err != nil {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.DKG", err)
	}
	var peerKey dkgKeyMsg
	if err := sendRecv(w, dkgKeyMsg{CKey: ownCipher.Bytes()}, &peerKey); err != nil {
		return nil, err
	}
	log.Debug(context.Background(), "dkg round 3 complete")

	q := xPoint.Add(peerPoint)

	return &tss.Keypair{
		Scheme:        tss.SchemeECDSA2P,
		Kind:          kind,
		KeyID:         params.KeyID,
		Curve:         tss.CurveSecp256k1,
		Q:             q,
		XShare:        xShare,
		CKey:          new(big.Int).SetBytes(peerKey.CKey),
		PeerPaillierN: new(big.Int).SetBytes(peerReveal.PaillierN),
		Paillier:      paillierSK,
		Label:         params.Label,
	}, nil
}

type commitMismatchErr struct{}

func (commitMismatchErr) Error() string { return "dkg: revealed point does not match round-one commitment" }

var errCommitMismatch = commitMismatchErr{}
