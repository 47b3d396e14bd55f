package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/abi"
)

func newDKGCmd() *cobra.Command {
	var sessionID, label, outDevice, outServer string

	cmd := &cobra.Command{
		Use:   "dkg",
		Short: "Run a loopback two-party DKG and print/export the resulting keypairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := abi.Init(tss.Config{})
			defer abi.Shutdown(ctx)

			device, err := abi.DkgNew(ctx, tss.KindDevice, abi.DkgOpts{SessionID: []byte(sessionID), Label: label})
			if err != nil {
				return fmt.Errorf("dkg_new (device): %w", err)
			}
			server, err := abi.DkgNew(ctx, tss.KindServer, abi.DkgOpts{SessionID: []byte(sessionID)})
			if err != nil {
				return fmt.Errorf("dkg_new (server): %w", err)
			}

			if err := pumpDKG(device, server); err != nil {
				return err
			}

			deviceKp, err := abi.DkgFinalize(device)
			if err != nil {
				return fmt.Errorf("dkg_finalize (device): %w", err)
			}
			serverKp, err := abi.DkgFinalize(server)
			if err != nil {
				return fmt.Errorf("dkg_finalize (server): %w", err)
			}

			_, pub, err := abi.KpPubkey(deviceKp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "joint public key: %x\n", pub)

			return exportKeypairs(ctx, deviceKp, serverKp, outDevice, outServer)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "maany-mpc-demo-dkg", "session identifier bound into the transcript")
	cmd.Flags().StringVar(&label, "label", "", "optional label for the device keypair")
	cmd.Flags().StringVar(&outDevice, "out-device", "", "file to write the device keypair's exported blob to (base64 to stdout if empty)")
	cmd.Flags().StringVar(&outServer, "out-server", "", "file to write the server keypair's exported blob to (base64 to stdout if empty)")
	return cmd
}

func exportKeypairs(ctx abi.Handle, deviceKp, serverKp abi.Handle, outDevice, outServer string) error {
	deviceBlob, err := abi.KpExport(deviceKp)
	if err != nil {
		return fmt.Errorf("kp_export (device): %w", err)
	}
	serverBlob, err := abi.KpExport(serverKp)
	if err != nil {
		return fmt.Errorf("kp_export (server): %w", err)
	}
	if err := writeOrPrint(outDevice, "device", deviceBlob); err != nil {
		return err
	}
	return writeOrPrint(outServer, "server", serverBlob)
}

func writeOrPrint(path, label string, blob []byte) error {
	if path == "" {
		fmt.Printf("%s keypair (base64): %s\n", label, base64.StdEncoding.EncodeToString(blob))
		return nil
	}
	return os.WriteFile(path, blob, 0o600)
}
