// Package abi implements spec.md §6's stable, flat external interface: a
// C-compatible function set over opaque handles, versioned
// (major, minor, patch) = (1, 0, 0).
//
// Grounded on the teacher's pkg/cbmpc/job.go handle discipline (an opaque
// handle plus an idempotent Close/Free), generalized from a cgo
// pointer-plus-uintptr pair to a sync.Map-backed uint64 handle table. No
// finalizer is attached: a handle stays in the table until the host frees
// it through the matching entry point. This module has no native
// library boundary to hand a real C pointer across. cmd/maany-mpc drives
// this surface instead of pkg/tss directly, the way a real host-language
// binding would.
package abi

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/backup"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/ecdsa2p"
)

// Version is spec.md §6's version() → (u32, u32, u32); a host must reject
// a major version it was not built against. Delegates to tss.ABIVersion
// so the root package and this surface never drift apart on the number.
func Version() (uint32, uint32, uint32) { return tss.ABIVersion() }

// ErrorString is spec.md §6's error_string entry point.
func ErrorString(kind tss.ErrorKind) string { return tss.ErrorString(kind) }

// Handle is an opaque reference into this package's handle table. The
// zero Handle never refers to a live object.
type Handle uint64

var (
	handleSeq   uint64
	handleTable sync.Map // Handle -> interface{}
)

func allocHandle(v interface{}) Handle {
	h := Handle(atomic.AddUint64(&handleSeq, 1))
	handleTable.Store(h, v)
	return h
}

func lookup(h Handle) (interface{}, bool) {
	return handleTable.Load(h)
}

func freeHandle(h Handle) {
	handleTable.Delete(h)
}

// Init is spec.md §6's init(opts?) → ctx. An empty Config selects the
// documented defaults (crypto/rand, ZeroizeBytes, a no-op logger).
func Init(cfg tss.Config) Handle {
	ctx := tss.NewContext(cfg)
	return allocHandle(ctx)
}

func ctxFor(h Handle) (*tss.Context, error) {
	v, ok := lookup(h)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errBadHandle)
	}
	ctx, ok := v.(*tss.Context)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errWrongHandleType)
	}
	return ctx, nil
}

// Shutdown is spec.md §6's shutdown(ctx): it sweeps every session the
// context still tracks and frees the context handle itself.
func Shutdown(ctx Handle) error {
	c, err := ctxFor(ctx)
	if err != nil {
		return err
	}
	freeHandle(ctx)
	return c.Shutdown()
}

// DkgOpts parameterizes DkgNew, mirroring ecdsa2p.DKGParams. Curve and
// Scheme default to secp256k1/ecdsa-2p (their zero values), the only
// combination this module implements; any other value surfaces
// ErrKindUnsupported once the session steps. KeyID defaults to all-zero
// per spec.md §3's "32-byte application-supplied identifier (all-zero
// when unset)".
type DkgOpts struct {
	Curve     tss.Curve
	Scheme    tss.Scheme
	SessionID []byte
	KeyID     [32]byte
	Label     string
}

type dkgSession struct {
	ctx        *tss.Context
	driver     *ecdsa2p.Driver
	registered uuid.UUID
}

// DkgNew is spec.md §6's dkg_new(ctx, opts) → dkg.
func DkgNew(ctx Handle, kind tss.Kind, opts DkgOpts) (Handle, error) {
	c, err := ctxFor(ctx)
	if err != nil {
		return 0, err
	}
	driver := ecdsa2p.NewDKG(c, kind, ecdsa2p.DKGParams{
		Curve:     opts.Curve,
		Scheme:    opts.Scheme,
		SessionID: opts.SessionID,
		KeyID:     opts.KeyID,
		Label:     opts.Label,
	})
	id := c.Register(driver)
	return allocHandle(&dkgSession{ctx: c, driver: driver, registered: id}), nil
}

func dkgFor(h Handle) (*dkgSession, error) {
	v, ok := lookup(h)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errBadHandle)
	}
	d, ok := v.(*dkgSession)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errWrongHandleType)
	}
	return d, nil
}

// DkgStep is spec.md §6's dkg_step(ctx, dkg, in?) → (state, out?). Also
// drives sessions created by RefreshNew, which reuses the same handle
// shape and wire contract.
func DkgStep(dkg Handle, in []byte) (tss.StepState, []byte, error) {
	d, err := dkgFor(dkg)
	if err != nil {
		return tss.StepContinue, nil, err
	}
	out, err := d.driver.Step(len(in) > 0, in)
	if err != nil {
		return tss.StepContinue, nil, err
	}
	return out.State, out.Outbound, nil
}

// DkgFinalize is spec.md §6's dkg_finalize(ctx, dkg) → kp; dkg becomes
// unusable afterward, mirroring spec.md §6's "dkg becomes unusable" note.
func DkgFinalize(dkg Handle) (Handle, error) {
	d, err := dkgFor(dkg)
	if err != nil {
		return 0, err
	}
	res, err := ecdsa2p.DKGFinalize(d.driver)
	if err != nil {
		return 0, err
	}
	d.ctx.Release(d.registered)
	freeHandle(dkg)
	return allocHandle(res.Key), nil
}

// RefreshOpts parameterizes RefreshNew, mirroring ecdsa2p.RefreshParams.
type RefreshOpts struct {
	// SessionID optionally binds the refresh transcript, per spec.md
	// §4.2.3's "existing Keypair, optional SID" input.
	SessionID []byte
}

// RefreshNew is spec.md §6's refresh_new(ctx, kp, opts?) → dkg: it yields
// a session driven exactly like a DKG session (dkg_step/dkg_finalize),
// per spec.md §6's note.
func RefreshNew(ctx Handle, kp Handle, opts RefreshOpts) (Handle, error) {
	c, err := ctxFor(ctx)
	if err != nil {
		return 0, err
	}
	key, err := kpFor(kp)
	if err != nil {
		return 0, err
	}
	driver := ecdsa2p.NewRefresh(c, key.Kind, ecdsa2p.RefreshParams{Key: key, SessionID: opts.SessionID})
	id := c.Register(driver)
	return allocHandle(&dkgSession{ctx: c, driver: driver, registered: id}), nil
}

// DkgFree is spec.md §6's dkg_free(dkg): abort/destroy.
func DkgFree(dkg Handle) error {
	d, err := dkgFor(dkg)
	if err != nil {
		return err
	}
	d.ctx.Release(d.registered)
	freeHandle(dkg)
	return d.driver.Close()
}

// SignOpts parameterizes SignNew, mirroring ecdsa2p.SignParams minus the
// message, which is supplied separately via SignSetMessage per spec.md §6.
type SignOpts struct {
	SessionID []byte
}

type signSession struct {
	mu         sync.Mutex
	ctx        *tss.Context
	kind       tss.Kind
	key        *tss.Keypair
	sessionID  []byte
	message    []byte
	msgSet     bool
	driver     *ecdsa2p.Driver
	registered uuid.UUID
	signature  []byte
}

// SignNew is spec.md §6's sign_new(ctx, kp, opts?) → sign. The underlying
// driver is not constructed until SignSetMessage runs, since the protocol
// body needs the message before its first round.
func SignNew(ctx Handle, kp Handle, opts SignOpts) (Handle, error) {
	c, err := ctxFor(ctx)
	if err != nil {
		return 0, err
	}
	key, err := kpFor(kp)
	if err != nil {
		return 0, err
	}
	return allocHandle(&signSession{ctx: c, kind: key.Kind, key: key, sessionID: opts.SessionID}), nil
}

func signFor(h Handle) (*signSession, error) {
	v, ok := lookup(h)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errBadHandle)
	}
	s, ok := v.(*signSession)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errWrongHandleType)
	}
	return s, nil
}

// SignSetMessage is spec.md §6's sign_set_message(ctx, sign, bytes):
// exactly once, non-empty.
func SignSetMessage(sign Handle, message []byte) error {
	s, err := signFor(sign)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.msgSet {
		return tss.NewError(tss.ErrKindProtocolState, "abi.SignSetMessage", errMessageAlreadySet)
	}
	if len(message) == 0 {
		return tss.NewError(tss.ErrKindInvalidArgument, "abi.SignSetMessage", errEmptyMessage)
	}
	s.message = append([]byte(nil), message...)
	s.msgSet = true
	s.driver = ecdsa2p.NewSign(s.ctx, s.kind, ecdsa2p.SignParams{
		SessionID: s.sessionID,
		Key:       s.key,
		Message:   s.message,
	})
	s.registered = s.ctx.Register(s.driver)
	return nil
}

// SignStep is spec.md §6's sign_step(ctx, sign, in?) → (state, out?). It
// reports ProtocolState if the message has not been set yet, since the
// driver does not exist until SignSetMessage runs.
func SignStep(sign Handle, in []byte) (tss.StepState, []byte, error) {
	s, err := signFor(sign)
	if err != nil {
		return tss.StepContinue, nil, err
	}
	s.mu.Lock()
	driver := s.driver
	s.mu.Unlock()
	if driver == nil {
		return tss.StepContinue, nil, tss.NewError(tss.ErrKindProtocolState, "abi.SignStep", errMessageNotSet)
	}
	out, err := driver.Step(len(in) > 0, in)
	if err != nil {
		return tss.StepContinue, nil, err
	}
	return out.State, out.Outbound, nil
}

// SignFinalize is spec.md §6's sign_finalize(ctx, sign, fmt) →
// signature_bytes. Device party only; other kinds report ProtocolState,
// matching the original implementation's restriction that only the
// device party is expected to consume the final signature.
func SignFinalize(sign Handle, format tss.SigFormat) ([]byte, error) {
	s, err := signFor(sign)
	if err != nil {
		return nil, err
	}
	if s.kind != tss.KindDevice {
		return nil, tss.NewError(tss.ErrKindProtocolState, "abi.SignFinalize", errNotDeviceParty)
	}
	s.mu.Lock()
	driver := s.driver
	cached := s.signature
	s.mu.Unlock()
	if driver == nil {
		return nil, tss.NewError(tss.ErrKindProtocolState, "abi.SignFinalize", errMessageNotSet)
	}
	if cached == nil {
		res, err := ecdsa2p.SignFinalize(driver)
		if err != nil {
			return nil, err
		}
		s.ctx.Release(s.registered)
		s.mu.Lock()
		s.signature = res.Signature
		cached = res.Signature
		s.mu.Unlock()
	}
	switch format {
	case tss.SigFormatRawRS:
		return cached, nil
	case tss.SigFormatDer:
		return tss.RawRSToDER(cached)
	default:
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi.SignFinalize", errUnknownSigFormat)
	}
}

// SignFree is spec.md §6's sign_free(sign): destroy.
func SignFree(sign Handle) error {
	s, err := signFor(sign)
	if err != nil {
		return err
	}
	freeHandle(sign)
	s.mu.Lock()
	driver := s.driver
	s.mu.Unlock()
	if driver == nil {
		return nil
	}
	s.ctx.Release(s.registered)
	return driver.Close()
}

func kpFor(h Handle) (*tss.Keypair, error) {
	v, ok := lookup(h)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errBadHandle)
	}
	kp, ok := v.(*tss.Keypair)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi", errWrongHandleType)
	}
	return kp, nil
}

// KpExport is spec.md §6's kp_export(ctx, kp) → bytes.
func KpExport(kp Handle) ([]byte, error) {
	k, err := kpFor(kp)
	if err != nil {
		return nil, err
	}
	return k.Export()
}

// KpImport is spec.md §6's kp_import(ctx, bytes) → kp.
func KpImport(blob []byte) (Handle, error) {
	k, err := tss.Import(blob)
	if err != nil {
		return 0, err
	}
	return allocHandle(k), nil
}

// KpPubkey is spec.md §6's kp_pubkey(ctx, kp) → (curve, compressed_bytes).
func KpPubkey(kp Handle) (tss.Curve, []byte, error) {
	k, err := kpFor(kp)
	if err != nil {
		return 0, nil, err
	}
	return k.Curve, k.PublicKey().CompressedBytes(), nil
}

// KpMeta is spec.md §6's kp_meta(ctx, kp) → (kind, scheme, curve, key_id).
func KpMeta(kp Handle) (kind tss.Kind, scheme tss.Scheme, curve tss.Curve, keyID [32]byte, err error) {
	k, err := kpFor(kp)
	if err != nil {
		return 0, 0, 0, [32]byte{}, err
	}
	scheme, kind, keyID, curve, _ = k.Meta()
	return kind, scheme, curve, keyID, nil
}

// KpFree is spec.md §6's kp_free(kp): it removes kp from the handle table
// and passes a serialized copy of the share through the context's
// zeroize function. The Scalar share and Paillier private key held by the
// Keypair itself are not overwritten.
func KpFree(ctx Handle, kp Handle) error {
	c, err := ctxFor(ctx)
	if err != nil {
		return err
	}
	k, err := kpFor(kp)
	if err != nil {
		return err
	}
	freeHandle(kp)
	xBytes := k.XShare.Bytes()
	c.Zeroize(xBytes)
	return nil
}

type backupCiphertextHandle struct {
	ct *backup.Ciphertext
}

// BackupCreate is spec.md §6's backup_create(ctx, kp, t, n, label?) →
// (ciphertext, shares[n]).
func BackupCreate(ctx Handle, kp Handle, threshold, shares int, label string) (Handle, [][]byte, error) {
	c, err := ctxFor(ctx)
	if err != nil {
		return 0, nil, err
	}
	k, err := kpFor(kp)
	if err != nil {
		return 0, nil, err
	}
	ct, shareList, err := backup.Create(c, k, threshold, shares, label)
	if err != nil {
		return 0, nil, err
	}
	out := make([][]byte, len(shareList))
	for i, s := range shareList {
		out[i] = s.Bytes()
	}
	return allocHandle(&backupCiphertextHandle{ct: ct}), out, nil
}

// BackupRestore is spec.md §6's backup_restore(ctx, ciphertext, shares[])
// → kp.
func BackupRestore(ctx Handle, ciphertext Handle, shares [][]byte) (Handle, error) {
	c, err := ctxFor(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := lookup(ciphertext)
	if !ok {
		return 0, tss.NewError(tss.ErrKindInvalidArgument, "abi.BackupRestore", errBadHandle)
	}
	h, ok := v.(*backupCiphertextHandle)
	if !ok {
		return 0, tss.NewError(tss.ErrKindInvalidArgument, "abi.BackupRestore", errWrongHandleType)
	}
	parsed := make([]backup.Share, len(shares))
	for i, s := range shares {
		share, err := backup.ShareFromBytes(s)
		if err != nil {
			return 0, tss.NewError(tss.ErrKindInvalidArgument, "abi.BackupRestore", err)
		}
		parsed[i] = share
	}
	kp, err := backup.Restore(c, h.ct, parsed)
	if err != nil {
		return 0, err
	}
	return allocHandle(kp), nil
}

// BackupExportCiphertext serializes a backup ciphertext handle so a host
// can persist it alongside the shares BackupCreate returned; spec.md §6
// treats the ciphertext as an opaque handle, but a real host needs a wire
// form to write it to storage between Create and a later Restore.
func BackupExportCiphertext(ciphertext Handle) ([]byte, error) {
	v, ok := lookup(ciphertext)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi.BackupExportCiphertext", errBadHandle)
	}
	h, ok := v.(*backupCiphertextHandle)
	if !ok {
		return nil, tss.NewError(tss.ErrKindInvalidArgument, "abi.BackupExportCiphertext", errWrongHandleType)
	}
	return h.ct.Marshal(), nil
}

// BackupImportCiphertext is the inverse of BackupExportCiphertext.
func BackupImportCiphertext(blob []byte) (Handle, error) {
	ct, err := backup.Unmarshal(blob)
	if err != nil {
		return 0, tss.NewError(tss.ErrKindInvalidArgument, "abi.BackupImportCiphertext", err)
	}
	return allocHandle(&backupCiphertextHandle{ct: ct}), nil
}

// BufFree is spec.md §6's buf_free(ctx, buf): every out-parameter buffer
// from this surface is a plain Go-GC-owned []byte, so releasing it is
// just zeroizing it in place through the context's injected zeroize
// function — there is no separate allocator to return memory to.
func BufFree(ctx Handle, buf []byte) error {
	c, err := ctxFor(ctx)
	if err != nil {
		return err
	}
	c.Zeroize(buf)
	return nil
}

type abiErr string

func (e abiErr) Error() string { return string(e) }

const (
	errBadHandle         abiErr = "abi: handle not found"
	errWrongHandleType   abiErr = "abi: handle refers to the wrong object type"
	errMessageAlreadySet abiErr = "abi: sign message already set"
	errEmptyMessage      abiErr = "abi: sign message must be non-empty"
	errMessageNotSet     abiErr = "abi: sign message has not been set yet"
	errNotDeviceParty    abiErr = "abi: sign_finalize called on a non-device party"
	errUnknownSigFormat  abiErr = "abi: unknown signature format"
)
