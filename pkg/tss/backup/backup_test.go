package backup_test

import (
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/harness"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/backup"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/ecdsa2p"
)

func testKeypair(t *testing.T) *tss.Keypair {
	t.Helper()
	ctx := tss.NewContext(tss.Config{})
	device := ecdsa2p.NewDKG(ctx, tss.KindDevice, ecdsa2p.DKGParams{SessionID: []byte("backup-dkg"), Label: "device-key"})
	server := ecdsa2p.NewDKG(ctx, tss.KindServer, ecdsa2p.DKGParams{SessionID: []byte("backup-dkg")})
	defer device.Close()
	defer server.Close()

	if err := harness.Run(device, server); err != nil {
		t.Fatalf("dkg harness: %v", err)
	}
	res, err := ecdsa2p.DKGFinalize(device)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return res.Key
}

func TestBackupRoundTripWithExactThreshold(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	kp := testKeypair(t)

	ct, shares, err := backup.Create(ctx, kp, 3, 5, "social-recovery")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(shares) != 5 {
		t.Fatalf("expected 5 shares, got %d", len(shares))
	}

	restored, err := backup.Restore(ctx, ct, shares[:3])
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if string(restored.PublicKey().CompressedBytes()) != string(kp.PublicKey().CompressedBytes()) {
		t.Fatalf("restored public key does not match original")
	}
	if restored.XShare.BigInt().Cmp(kp.XShare.BigInt()) != 0 {
		t.Fatalf("restored share does not match original")
	}
}

func TestBackupAnyThresholdSubsetWorks(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	kp := testKeypair(t)

	ct, shares, err := backup.Create(ctx, kp, 2, 4, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Shares 2 and 4 (skipping 1 and 3) must combine just as well as any
	// other pair — the whole point of (t, n) threshold sharing.
	subset := []backup.Share{shares[1], shares[3]}
	restored, err := backup.Restore(ctx, ct, subset)
	if err != nil {
		t.Fatalf("restore with non-contiguous subset: %v", err)
	}
	if restored.XShare.BigInt().Cmp(kp.XShare.BigInt()) != 0 {
		t.Fatalf("restored share mismatch with non-contiguous subset")
	}
}

func TestBackupRejectsTooFewShares(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	kp := testKeypair(t)

	ct, shares, err := backup.Create(ctx, kp, 3, 5, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = backup.Restore(ctx, ct, shares[:2])
	if tss.KindOf(err) != tss.ErrKindInvalidArgument {
		t.Fatalf("expected ErrKindInvalidArgument for a short share set, got %v", err)
	}
}

func TestBackupRejectsTamperedShare(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	kp := testKeypair(t)

	ct, shares, err := backup.Create(ctx, kp, 2, 3, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tampered := shares[0].Bytes()
	tampered[len(tampered)-1] ^= 0xFF
	badShare, err := backup.ShareFromBytes(tampered)
	if err != nil {
		t.Fatalf("parse tampered share: %v", err)
	}

	_, err = backup.Restore(ctx, ct, []backup.Share{badShare, shares[1]})
	kind := tss.KindOf(err)
	if kind != tss.ErrKindCrypto && kind != tss.ErrKindInvalidArgument {
		t.Fatalf("expected Crypto or InvalidArgument for a tampered share, got %v", err)
	}
}

func TestBackupRejectsInvalidThresholds(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	kp := testKeypair(t)

	if _, _, err := backup.Create(ctx, kp, 3, 2, ""); tss.KindOf(err) != tss.ErrKindInvalidArgument {
		t.Fatalf("expected InvalidArgument for n < t, got %v", err)
	}
	if _, _, err := backup.Create(ctx, kp, 1, 0, ""); tss.KindOf(err) != tss.ErrKindInvalidArgument {
		t.Fatalf("expected InvalidArgument for n == 0, got %v", err)
	}
}

func TestBackupRotatePreservesKeyAcrossNewSplit(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	kp := testKeypair(t)

	ct, shares, err := backup.Create(ctx, kp, 2, 3, "custodians-v1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newCt, newShares, err := backup.Rotate(ctx, ct, shares[:2], 3, 5)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newCt.Threshold != 3 || newCt.Shares != 5 {
		t.Fatalf("rotate did not apply the new threshold/shares")
	}

	restored, err := backup.Restore(ctx, newCt, newShares[:3])
	if err != nil {
		t.Fatalf("restore after rotate: %v", err)
	}
	if string(restored.PublicKey().CompressedBytes()) != string(kp.PublicKey().CompressedBytes()) {
		t.Fatalf("rotate changed the underlying key")
	}
}

func TestBackupAssociatedDataBindsLabel(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	kp := testKeypair(t)

	ct, shares, err := backup.Create(ctx, kp, 2, 2, "original-label")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mismatched := *ct
	mismatched.Label = "different-label"
	_, err = backup.Restore(ctx, &mismatched, shares)
	if tss.KindOf(err) != tss.ErrKindCrypto {
		t.Fatalf("expected Crypto for a label mismatch, got %v", err)
	}
}
