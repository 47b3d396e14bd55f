package ecdsa2p

import (
	"math/big"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
)

// RefreshParams configures a proactive share refresh against an existing
// keypair, grounded on the teacher's pkg/cbmpc/ecdsa2p.RefreshParams shape.
type RefreshParams struct {
	Key *tss.Keypair
	// SessionID optionally binds this run's commit/reveal transcript to a
	// caller-chosen identifier, preventing a refresh round from one
	// session being replayed into another (spec.md §4.2.3's "optional
	// SID"). Leaving it nil binds to an empty transcript, matching DKG's
	// and Sign's treatment of an absent SessionID.
	SessionID []byte
}

// RefreshResult is Refresh's output: a new keypair half with the same
// joint public key and key ID, a freshly re-randomized additive share,
// and a freshly generated Paillier keypair.
type RefreshResult struct {
	NewKey *tss.Keypair
}

// NewRefresh starts a proactive refresh session for the given role.
func NewRefresh(ctx *tss.Context, kind tss.Kind, params RefreshParams) *Driver {
	return newDriver(func(w Worker) (interface{}, error) {
		key, err := runRefresh(w, ctx, kind, params)
		if err != nil {
			return nil, err
		}
		return &RefreshResult{NewKey: key}, nil
	})
}

// RefreshFinalize extracts the refreshed keypair from a Driver returned by
// NewRefresh, once Step has reported tss.StepDone.
func RefreshFinalize(d *Driver) (*RefreshResult, error) {
	res, err := d.finalize()
	if err != nil {
		return nil, err
	}
	return res.(*RefreshResult), nil
}

func runRefresh(w Worker, ctx *tss.Context, kind tss.Kind, params RefreshParams) (*tss.Keypair, error) {
	old := params.Key
	rng := ctx.RNG()

	delta, err := primitives.RandomScalar(rng)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindRng, "ecdsa2p.Refresh", err)
	}
	sidBoundDelta := append(append([]byte(nil), params.SessionID...), scalarBytes(delta)...)
	commit, nonce, err := commitTo(rng, sidBoundDelta)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindRng, "ecdsa2p.Refresh", err)
	}

	var peerCommit commitMsg
	if err := sendRecv(w, commitMsg{Commit: commit}, &peerCommit); err != nil {
		return nil, err
	}

	var peerReveal refreshRevealMsg
	if err := sendRecv(w, refreshRevealMsg{Nonce: nonce, Delta: scalarBytes(delta)}, &peerReveal); err != nil {
		return nil, err
	}
	sidBoundPeerDelta := append(append([]byte(nil), params.SessionID...), peerReveal.Delta...)
	if !checkCommit(peerCommit.Commit, peerReveal.Nonce, sidBoundPeerDelta) {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.Refresh", errCommitMismatch)
	}
	peerDelta, err := primitives.ScalarFromBytes(peerReveal.Delta)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "ecdsa2p.Refresh", err)
	}

	// new_x_i = x_i + delta_i - delta_peer. Summed across both parties the
	// delta_i/-delta_peer terms cancel, leaving the joint secret and public
	// key unchanged while each party's own share becomes uniformly fresh.
	newXShare := old.XShare.Add(delta).Sub(peerDelta)

	newPaillier, err := primitives.GeneratePaillierKey(rng)
	if err != nil {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.Refresh", err)
	}
	newCipher, err := newPaillier.Encrypt(rng, newXShare.BigInt())
	if err != nil {
		return nil, tss.NewError(tss.ErrKindCrypto, "ecdsa2p.Refresh", err)
	}

	var peerKey dkgKeyMsg
	ownKey := dkgKeyMsg{PaillierN: newPaillier.N(), CKey: newCipher.Bytes()}
	if err := sendRecv(w, ownKey, &peerKey); err != nil {
		return nil, err
	}

	return &tss.Keypair{
		Scheme:        old.Scheme,
		Kind:          old.Kind,
		KeyID:         old.KeyID,
		Curve:         old.Curve,
		Q:             old.Q,
		XShare:        newXShare,
		CKey:          new(big.Int).SetBytes(peerKey.CKey),
		PeerPaillierN: new(big.Int).SetBytes(peerKey.PaillierN),
		Paillier:      newPaillier,
		Label:         old.Label,
	}, nil
}
