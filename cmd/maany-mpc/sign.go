package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/abi"
)

func newSignCmd() *cobra.Command {
	var sessionID, deviceKeyPath, serverKeyPath, message, format string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Run a loopback two-party signature over a message using two exported keypairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceKeyPath == "" || serverKeyPath == "" {
				return fmt.Errorf("both --device-key and --server-key are required (produced by the dkg subcommand)")
			}
			if message == "" {
				return fmt.Errorf("--message is required")
			}

			ctx := abi.Init(tss.Config{})
			defer abi.Shutdown(ctx)

			deviceKp, err := importKeypairFile(deviceKeyPath)
			if err != nil {
				return fmt.Errorf("importing device keypair: %w", err)
			}
			serverKp, err := importKeypairFile(serverKeyPath)
			if err != nil {
				return fmt.Errorf("importing server keypair: %w", err)
			}

			sid := []byte(sessionID)
			device, err := abi.SignNew(ctx, deviceKp, abi.SignOpts{SessionID: sid})
			if err != nil {
				return fmt.Errorf("sign_new (device): %w", err)
			}
			server, err := abi.SignNew(ctx, serverKp, abi.SignOpts{SessionID: sid})
			if err != nil {
				return fmt.Errorf("sign_new (server): %w", err)
			}

			if err := abi.SignSetMessage(device, []byte(message)); err != nil {
				return fmt.Errorf("sign_set_message (device): %w", err)
			}
			if err := abi.SignSetMessage(server, []byte(message)); err != nil {
				return fmt.Errorf("sign_set_message (server): %w", err)
			}

			if err := pumpSign(device, server); err != nil {
				return err
			}

			sigFormat := tss.SigFormatDer
			if format == "raw" {
				sigFormat = tss.SigFormatRawRS
			}
			sig, err := abi.SignFinalize(device, sigFormat)
			if err != nil {
				return fmt.Errorf("sign_finalize: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signature (%s): %s\n", format, hex.EncodeToString(sig))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "maany-mpc-demo-sign", "session identifier bound into the transcript")
	cmd.Flags().StringVar(&deviceKeyPath, "device-key", "", "path to the device party's exported keypair blob")
	cmd.Flags().StringVar(&serverKeyPath, "server-key", "", "path to the server party's exported keypair blob")
	cmd.Flags().StringVar(&message, "message", "", "message to sign")
	cmd.Flags().StringVar(&format, "format", "der", "signature output format: der or raw")
	return cmd
}

func importKeypairFile(path string) (abi.Handle, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return abi.KpImport(blob)
}
