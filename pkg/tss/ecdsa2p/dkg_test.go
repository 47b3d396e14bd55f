package ecdsa2p_test

import (
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/harness"
	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/ecdsa2p"
)

func runDKGPair(t *testing.T, sessionID []byte) (*tss.Keypair, *tss.Keypair) {
	t.Helper()
	ctx := tss.NewContext(tss.Config{})

	device := ecdsa2p.NewDKG(ctx, tss.KindDevice, ecdsa2p.DKGParams{SessionID: sessionID, Label: "device-key"})
	server := ecdsa2p.NewDKG(ctx, tss.KindServer, ecdsa2p.DKGParams{SessionID: sessionID, Label: "server-key"})
	defer device.Close()
	defer server.Close()

	if err := harness.Run(device, server); err != nil {
		t.Fatalf("dkg harness: %v", err)
	}

	deviceResult, err := ecdsa2p.DKGFinalize(device)
	if err != nil {
		t.Fatalf("device finalize: %v", err)
	}
	serverResult, err := ecdsa2p.DKGFinalize(server)
	if err != nil {
		t.Fatalf("server finalize: %v", err)
	}
	return deviceResult.Key, serverResult.Key
}

func TestDKGProducesMatchingJointKey(t *testing.T) {
	deviceKey, serverKey := runDKGPair(t, []byte("dkg-session-1"))

	if deviceKey.KeyID != serverKey.KeyID {
		t.Fatalf("key IDs diverge: device=%x server=%x", deviceKey.KeyID, serverKey.KeyID)
	}
	devicePub := deviceKey.PublicKey().CompressedBytes()
	serverPub := serverKey.PublicKey().CompressedBytes()
	if string(devicePub) != string(serverPub) {
		t.Fatalf("joint public keys diverge:\ndevice: %x\nserver: %x", devicePub, serverPub)
	}

	// Q must equal x_device*G + x_server*G.
	reconstructed := deviceKey.XShare.Add(serverKey.XShare)
	q := primitives.BasePointMul(reconstructed)
	if string(q.CompressedBytes()) != string(devicePub) {
		t.Fatalf("Q does not equal (x_device+x_server)*G")
	}
}

func TestDKGCachesCounterpartyCKey(t *testing.T) {
	deviceKey, serverKey := runDKGPair(t, []byte("dkg-session-2"))

	if deviceKey.CKey == nil || deviceKey.CKey.Sign() == 0 {
		t.Fatalf("device keypair missing counterparty c_key")
	}
	if serverKey.CKey == nil || serverKey.CKey.Sign() == 0 {
		t.Fatalf("server keypair missing counterparty c_key")
	}
	if deviceKey.PeerPaillierN == nil || deviceKey.PeerPaillierN.Sign() == 0 {
		t.Fatalf("device keypair missing counterparty paillier modulus")
	}

	// The device's cached c_key must decrypt under the SERVER's Paillier
	// key to the server's own share, since it is Enc_server(x_server).
	decrypted, err := serverKey.Paillier.Decrypt(deviceKey.CKey)
	if err != nil {
		t.Fatalf("decrypt device's cached c_key: %v", err)
	}
	if decrypted.Cmp(serverKey.XShare.BigInt()) != 0 {
		t.Fatalf("device's cached c_key does not decrypt to the server's share")
	}
}

func TestDKGHonorsApplicationSuppliedKeyID(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	sessionID := []byte("dkg-session-keyid")
	keyID := [32]byte{1, 2, 3, 4, 5}

	device := ecdsa2p.NewDKG(ctx, tss.KindDevice, ecdsa2p.DKGParams{SessionID: sessionID, KeyID: keyID})
	server := ecdsa2p.NewDKG(ctx, tss.KindServer, ecdsa2p.DKGParams{SessionID: sessionID, KeyID: keyID})
	defer device.Close()
	defer server.Close()

	if err := harness.Run(device, server); err != nil {
		t.Fatalf("dkg harness: %v", err)
	}
	deviceResult, err := ecdsa2p.DKGFinalize(device)
	if err != nil {
		t.Fatalf("device finalize: %v", err)
	}
	if deviceResult.Key.KeyID != keyID {
		t.Fatalf("DKG did not thread the caller-supplied key_id through: got %x, want %x", deviceResult.Key.KeyID, keyID)
	}
}

func TestDKGDefaultsToAllZeroKeyID(t *testing.T) {
	deviceKey, _ := runDKGPair(t, []byte("dkg-session-default-keyid"))
	var zero [32]byte
	if deviceKey.KeyID != zero {
		t.Fatalf("DKGParams with no KeyID set should default to all-zero, got %x", deviceKey.KeyID)
	}
}

func TestDKGRejectsUnsupportedCurve(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	driver := ecdsa2p.NewDKG(ctx, tss.KindDevice, ecdsa2p.DKGParams{
		SessionID: []byte("dkg-session-bad-curve"),
		Curve:     tss.CurveEd25519,
	})
	defer driver.Close()

	for i := 0; i < 4; i++ {
		out, err := driver.Step(false, nil)
		if err != nil {
			break
		}
		if out.State == tss.StepDone {
			break
		}
	}
	if !driver.HasFailure() {
		t.Fatalf("expected an unsupported-curve failure")
	}
	if driver.Failure().Kind != tss.ErrKindUnsupported {
		t.Fatalf("expected ErrKindUnsupported, got %v", driver.Failure().Kind)
	}
}

func TestDKGRejectsUnsupportedScheme(t *testing.T) {
	ctx := tss.NewContext(tss.Config{})
	driver := ecdsa2p.NewDKG(ctx, tss.KindDevice, ecdsa2p.DKGParams{
		SessionID: []byte("dkg-session-bad-scheme"),
		Scheme:    tss.SchemeSchnorr2P,
	})
	defer driver.Close()

	for i := 0; i < 4; i++ {
		out, err := driver.Step(false, nil)
		if err != nil {
			break
		}
		if out.State == tss.StepDone {
			break
		}
	}
	if !driver.HasFailure() {
		t.Fatalf("expected an unsupported-scheme failure")
	}
	if driver.Failure().Kind != tss.ErrKindUnsupported {
		t.Fatalf("expected ErrKindUnsupported, got %v", driver.Failure().Kind)
	}
}

func TestDKGExportImportRoundTrip(t *testing.T) {
	deviceKey, _ := runDKGPair(t, []byte("dkg-session-3"))

	blob, err := deviceKey.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	restored, err := tss.Import(blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.KeyID != deviceKey.KeyID {
		t.Fatalf("key id changed across export/import")
	}
	if restored.XShare.BigInt().Cmp(deviceKey.XShare.BigInt()) != 0 {
		t.Fatalf("x share changed across export/import")
	}
	if restored.CKey.Cmp(deviceKey.CKey) != 0 {
		t.Fatalf("c_key changed across export/import")
	}
}
