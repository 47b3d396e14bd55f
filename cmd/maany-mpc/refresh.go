package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/abi"
)

func newRefreshCmd() *cobra.Command {
	var deviceKeyPath, serverKeyPath, outDevice, outServer, sessionID string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-randomize an existing two-party keypair's additive shares without changing the joint public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceKeyPath == "" || serverKeyPath == "" {
				return fmt.Errorf("both --device-key and --server-key are required (produced by the dkg subcommand)")
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

			opts := abi.RefreshOpts{SessionID: []byte(sessionID)}
			device, err := abi.RefreshNew(ctx, deviceKp, opts)
			if err != nil {
				return fmt.Errorf("refresh_new (device): %w", err)
			}
			server, err := abi.RefreshNew(ctx, serverKp, opts)
			if err != nil {
				return fmt.Errorf("refresh_new (server): %w", err)
			}

			if err := pumpDKG(device, server); err != nil {
				return err
			}

			newDeviceKp, err := abi.DkgFinalize(device)
			if err != nil {
				return fmt.Errorf("dkg_finalize (device): %w", err)
			}
			newServerKp, err := abi.DkgFinalize(server)
			if err != nil {
				return fmt.Errorf("dkg_finalize (server): %w", err)
			}

			_, pub, err := abi.KpPubkey(newDeviceKp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "joint public key (unchanged): %x\n", pub)

			return exportKeypairs(ctx, newDeviceKp, newServerKp, outDevice, outServer)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "maany-mpc-demo-refresh", "session identifier bound into the refresh transcript")
	cmd.Flags().StringVar(&deviceKeyPath, "device-key", "", "path to the device party's exported keypair blob")
	cmd.Flags().StringVar(&serverKeyPath, "server-key", "", "path to the server party's exported keypair blob")
	cmd.Flags().StringVar(&outDevice, "out-device", "", "file to write the refreshed device keypair's exported blob to (base64 to stdout if empty)")
	cmd.Flags().StringVar(&outServer, "out-server", "", "file to write the refreshed server keypair's exported blob to (base64 to stdout if empty)")
	return cmd
}
