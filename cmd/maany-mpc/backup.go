package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/abi"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Split and restore a keypair under a Shamir (t, n) custodian set",
	}
	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	var keyPath, label, outDir string
	var threshold, shares int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Split an exported keypair into n shares, any t of which restore it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyPath == "" {
				return fmt.Errorf("--key is required (produced by the dkg subcommand)")
			}
			if outDir == "" {
				return fmt.Errorf("--out-dir is required")
			}

			ctx := abi.Init(tss.Config{})
			defer abi.Shutdown(ctx)

			kp, err := importKeypairFile(keyPath)
			if err != nil {
				return fmt.Errorf("importing keypair: %w", err)
			}

			ciphertext, shareBlobs, err := abi.BackupCreate(ctx, kp, threshold, shares, label)
			if err != nil {
				return fmt.Errorf("backup_create: %w", err)
			}

			ctBlob, err := abi.BackupExportCiphertext(ciphertext)
			if err != nil {
				return fmt.Errorf("exporting ciphertext: %w", err)
			}

			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, "ciphertext.bin"), ctBlob, 0o600); err != nil {
				return err
			}
			for i, share := range shareBlobs {
				name := filepath.Join(outDir, fmt.Sprintf("share-%02d.bin", i+1))
				if err := os.WriteFile(name, share, 0o600); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote ciphertext.bin and %d share files to %s\n", len(shareBlobs), outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "", "path to the exported keypair blob to back up")
	cmd.Flags().StringVar(&label, "label", "", "optional label bound into the backup's associated data")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write ciphertext.bin and share-NN.bin into")
	cmd.Flags().IntVar(&threshold, "threshold", 2, "number of shares required to restore")
	cmd.Flags().IntVar(&shares, "shares", 3, "total number of shares to produce")
	return cmd
}

func newBackupRestoreCmd() *cobra.Command {
	var ciphertextPath string
	var sharePaths []string
	var outPath string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Reconstruct a keypair from a ciphertext and at least threshold shares",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ciphertextPath == "" {
				return fmt.Errorf("--ciphertext is required")
			}
			if len(sharePaths) == 0 {
				return fmt.Errorf("at least one --share is required")
			}

			ctx := abi.Init(tss.Config{})
			defer abi.Shutdown(ctx)

			ctBlob, err := os.ReadFile(ciphertextPath)
			if err != nil {
				return err
			}
			ciphertext, err := abi.BackupImportCiphertext(ctBlob)
			if err != nil {
				return fmt.Errorf("importing ciphertext: %w", err)
			}

			shareBlobs := make([][]byte, len(sharePaths))
			for i, p := range sharePaths {
				blob, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				shareBlobs[i] = blob
			}

			kp, err := abi.BackupRestore(ctx, ciphertext, shareBlobs)
			if err != nil {
				return fmt.Errorf("backup_restore: %w", err)
			}

			blob, err := abi.KpExport(kp)
			if err != nil {
				return fmt.Errorf("kp_export: %w", err)
			}

			kind, scheme, curve, keyID, err := abi.KpMeta(kp)
			if err != nil {
				return err
			}
			summary, _ := json.Marshal(map[string]interface{}{
				"kind":   kind,
				"scheme": scheme,
				"curve":  curve,
				"key_id": fmt.Sprintf("%x", keyID),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "restored keypair: %s\n", summary)

			if outPath == "" {
				return writeOrPrint("", "restored", blob)
			}
			return os.WriteFile(outPath, blob, 0o600)
		},
	}

	cmd.Flags().StringVar(&ciphertextPath, "ciphertext", "", "path to the backup's ciphertext.bin")
	cmd.Flags().StringArrayVar(&sharePaths, "share", nil, "path to a share file; repeat for each share, at least threshold required")
	cmd.Flags().StringVar(&outPath, "out", "", "file to write the restored keypair's exported blob to (base64 to stdout if empty)")
	return cmd
}
