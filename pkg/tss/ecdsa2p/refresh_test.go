package ecdsa2p_test

import (
	"testing"

	"github.com/maany-xyz/maany-mpc-core/internal/harness"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/ecdsa2p"
)

func refreshPair(t *testing.T, deviceKey, serverKey *tss.Keypair) (*tss.Keypair, *tss.Keypair) {
	t.Helper()
	ctx := tss.NewContext(tss.Config{})

	device := ecdsa2p.NewRefresh(ctx, tss.KindDevice, ecdsa2p.RefreshParams{Key: deviceKey})
	server := ecdsa2p.NewRefresh(ctx, tss.KindServer, ecdsa2p.RefreshParams{Key: serverKey})
	defer device.Close()
	defer server.Close()

	if err := harness.Run(device, server); err != nil {
		t.Fatalf("refresh harness: %v", err)
	}

	deviceResult, err := ecdsa2p.RefreshFinalize(device)
	if err != nil {
		t.Fatalf("device finalize: %v", err)
	}
	serverResult, err := ecdsa2p.RefreshFinalize(server)
	if err != nil {
		t.Fatalf("server finalize: %v", err)
	}
	return deviceResult.NewKey, serverResult.NewKey
}

// TestRefreshSessionIDBindsTheTranscript covers spec.md §4.2.3's optional
// SID input: two parties that disagree on the refresh SID must fail to
// complete, the same way a DKG SID mismatch would, rather than silently
// accepting each other's commitments.
func TestRefreshSessionIDBindsTheTranscript(t *testing.T) {
	deviceKey, serverKey := runDKGPair(t, []byte("refresh-sid-dkg"))
	ctx := tss.NewContext(tss.Config{})

	device := ecdsa2p.NewRefresh(ctx, tss.KindDevice, ecdsa2p.RefreshParams{Key: deviceKey, SessionID: []byte("sid-a")})
	server := ecdsa2p.NewRefresh(ctx, tss.KindServer, ecdsa2p.RefreshParams{Key: serverKey, SessionID: []byte("sid-b")})
	defer device.Close()
	defer server.Close()

	if err := harness.Run(device, server); err == nil {
		t.Fatalf("expected refresh to fail when the two parties disagree on the session id")
	}
}

func TestRefreshPreservesJointPublicKey(t *testing.T) {
	deviceKey, serverKey := runDKGPair(t, []byte("refresh-dkg"))
	oldPub := deviceKey.PublicKey().CompressedBytes()
	oldKeyID := deviceKey.KeyID

	newDevice, newServer := refreshPair(t, deviceKey, serverKey)

	if string(newDevice.PublicKey().CompressedBytes()) != string(oldPub) {
		t.Fatalf("refresh changed the joint public key")
	}
	if newDevice.KeyID != oldKeyID {
		t.Fatalf("refresh changed the key id")
	}
	if string(newDevice.PublicKey().CompressedBytes()) != string(newServer.PublicKey().CompressedBytes()) {
		t.Fatalf("device and server disagree on the joint public key after refresh")
	}
}

func TestRefreshChangesShares(t *testing.T) {
	deviceKey, serverKey := runDKGPair(t, []byte("refresh-dkg-2"))
	oldDeviceShare := deviceKey.XShare.BigInt()

	newDevice, _ := refreshPair(t, deviceKey, serverKey)

	if newDevice.XShare.BigInt().Cmp(oldDeviceShare) == 0 {
		t.Fatalf("refresh did not change the device's additive share")
	}
	if newDevice.Paillier == deviceKey.Paillier {
		t.Fatalf("refresh did not regenerate the paillier keypair")
	}
}

// TestSignFailsWithMixedGenerationShares covers spec.md §8 invariant 8 /
// scenario S4: a refresh is only safe when both parties adopt their new
// share together. Pairing the device's pre-refresh share with the
// server's post-refresh share must fail signing rather than silently
// produce a usable signature, since the two sides no longer hold a
// consistent additive split of the same private key (nor matching
// Paillier moduli for the MtA rounds).
func TestSignFailsWithMixedGenerationShares(t *testing.T) {
	deviceKey, serverKey := runDKGPair(t, []byte("mixed-generation-dkg"))
	_, newServer := refreshPair(t, deviceKey, serverKey)

	ctx := tss.NewContext(tss.Config{})
	digest := [32]byte{9, 9, 9}

	device := ecdsa2p.NewSign(ctx, tss.KindDevice, ecdsa2p.SignParams{
		SessionID: []byte("mixed-generation-sign"),
		Key:       deviceKey, // stale, pre-refresh share
		Message:   digest[:],
	})
	server := ecdsa2p.NewSign(ctx, tss.KindServer, ecdsa2p.SignParams{
		SessionID: []byte("mixed-generation-sign"),
		Key:       newServer, // refreshed share
		Message:   digest[:],
	})
	defer device.Close()
	defer server.Close()

	if err := harness.Run(device, server); err == nil {
		t.Fatalf("expected signing to fail when device and server shares come from different refresh generations")
	}
}

func TestSignAfterRefresh(t *testing.T) {
	deviceKey, serverKey := runDKGPair(t, []byte("refresh-then-sign-dkg"))
	newDevice, newServer := refreshPair(t, deviceKey, serverKey)

	digest := [32]byte{1, 2, 3}
	key := pair{device: newDevice, server: newServer}
	deviceSig, serverSig := signPair(t, key, []byte("post-refresh-sign"), digest[:])

	if string(deviceSig.Signature) != string(serverSig.Signature) {
		t.Fatalf("post-refresh signing disagreed between parties")
	}
}
