// Package harness drives two step-engine sessions to completion without a
// real transport, the way a test or a demo CLI exercises a two-party
// protocol end to end.
//
// Grounded on the teacher's pkg/mpc/mock_session.go (MockSession/
// NewMockNetwork) and pkg/cbmpc/mocknet/mocknet.go: both wire up a
// loopback in-memory channel between two parties so a protocol body never
// notices it isn't talking to a socket. This package is simpler than
// either, because pkg/tss/engine already removed the blocking Send/Receive
// transport from the picture — a host here just shuttles one side's
// outbound bytes into the other side's next Step call.
package harness

import (
	"errors"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/engine"
)

// Stepper is the subset of ecdsa2p.Driver this package needs: any
// step-driven session satisfies it structurally, without a direct
// dependency on pkg/tss/ecdsa2p.
type Stepper interface {
	Step(hasInbound bool, inbound []byte) (engine.StepOutput, error)
}

// maxRounds bounds the pump loop so a protocol bug that never reaches
// StepDone fails the caller's test instead of hanging it forever.
const maxRounds = 64

// Run pumps a and b against each other until both report StepDone,
// feeding each side's outbound message into the other's next Step call.
// It assumes the send-then-recv round shape every driver in this module
// uses: each round, a live side produces exactly one outbound message
// before blocking on its next inbound, so round-by-round cross-delivery
// is always sufficient — a harness for an asynchronous or multi-message-
// per-round protocol would need a real queue instead.
func Run(a, b Stepper) error {
	var aIn, bIn []byte
	haveAIn, haveBIn := false, false

	for round := 0; round < maxRounds; round++ {
		aRes, err := a.Step(haveAIn, aIn)
		if err != nil {
			return err
		}
		bRes, err := b.Step(haveBIn, bIn)
		if err != nil {
			return err
		}

		aDone := aRes.State == tss.StepDone
		bDone := bRes.State == tss.StepDone
		if aDone && bDone {
			return nil
		}

		aIn, haveAIn = bRes.Outbound, len(bRes.Outbound) > 0
		bIn, haveBIn = aRes.Outbound, len(aRes.Outbound) > 0
	}
	return errors.New("harness: exceeded max rounds without reaching StepDone")
}
