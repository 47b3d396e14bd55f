package main

import (
	"fmt"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/abi"
)

// maxDemoRounds bounds every loopback pump loop in this CLI, matching
// internal/harness.Run's fail-fast-instead-of-hang discipline.
const maxDemoRounds = 64

// pumpDKG drives two DKG (or refresh, which reuses the DKG handle shape)
// sessions against each other in-process, the way a real host would
// shuttle bytes between two network peers.
func pumpDKG(device, server abi.Handle) error {
	var inDevice, inServer []byte
	for round := 0; round < maxDemoRounds; round++ {
		stateD, outD, err := abi.DkgStep(device, inDevice)
		if err != nil {
			return fmt.Errorf("device dkg_step: %w", err)
		}
		stateS, outS, err := abi.DkgStep(server, inServer)
		if err != nil {
			return fmt.Errorf("server dkg_step: %w", err)
		}
		if stateD == tss.StepDone && stateS == tss.StepDone {
			return nil
		}
		inDevice, inServer = outS, outD
	}
	return fmt.Errorf("dkg exceeded %d rounds without reaching StepDone", maxDemoRounds)
}

func pumpSign(device, server abi.Handle) error {
	var inDevice, inServer []byte
	for round := 0; round < maxDemoRounds; round++ {
		stateD, outD, err := abi.SignStep(device, inDevice)
		if err != nil {
			return fmt.Errorf("device sign_step: %w", err)
		}
		stateS, outS, err := abi.SignStep(server, inServer)
		if err != nil {
			return fmt.Errorf("server sign_step: %w", err)
		}
		if stateD == tss.StepDone && stateS == tss.StepDone {
			return nil
		}
		inDevice, inServer = outS, outD
	}
	return fmt.Errorf("sign exceeded %d rounds without reaching StepDone", maxDemoRounds)
}
