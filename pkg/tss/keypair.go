package tss

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/maany-xyz/maany-mpc-core/internal/primitives"
)

// keypairMagic and keypairVersion identify this module's keypair blob
// format per spec.md §4.3.
const (
	keypairMagic   uint32 = 0x4D50434B // "MPCK"
	keypairVersion uint32 = 1
)

// Keypair is one party's half of a completed DKG: its additive share of
// the joint private key, the joint public key, the Paillier keypair bound
// into the DKG transcript, and the cached encryption of the counterparty's
// share (c_key) used by the Sign driver's sigma-MtA round.
type Keypair struct {
	Scheme Scheme
	Kind   Kind
	KeyID  [32]byte
	Curve  Curve

	Q      primitives.Point
	XShare primitives.Scalar

	// CKey is the counterparty's c_key from DKG: Enc_peerPK(peer's XShare),
	// encrypted under the COUNTERPARTY's own Paillier public key and
	// cached here exactly as received (see DESIGN.md's MtA grounding).
	// The Sign driver's sigma-MtA round runs as the sender against this
	// ciphertext and PeerPaillierN, never decrypting it locally.
	CKey *big.Int

	// PeerPaillierN is the counterparty's Paillier modulus, cached
	// alongside CKey so the sign driver can reconstruct their public key
	// without a network round trip.
	PeerPaillierN *big.Int

	Paillier *primitives.PaillierPrivateKey

	// Label is optional host bookkeeping, never used in cryptographic
	// binding (see SPEC_FULL.md's Keypair.Label supplement).
	Label string
}

// PublicKey returns the joint public key Q = X_device + X_server.
func (k *Keypair) PublicKey() primitives.Point { return k.Q }

// Meta returns the bookkeeping fields a host can inspect without touching
// key material: scheme, kind, key ID, curve, and label.
func (k *Keypair) Meta() (scheme Scheme, kind Kind, keyID [32]byte, curve Curve, label string) {
	return k.Scheme, k.Kind, k.KeyID, k.Curve, k.Label
}

// Export serializes k per spec.md §4.3's binary framing. The codec
// round-trips: Import(Export(k)) reproduces k's observable fields exactly.
func (k *Keypair) Export() ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = appendU32(buf, keypairMagic)
	buf = appendU32(buf, keypairVersion)
	buf = appendU32(buf, uint32(k.Scheme))
	buf = appendU32(buf, uint32(k.Kind))
	buf = append(buf, k.KeyID[:]...)
	buf = appendU32(buf, uint32(k.Curve))
	buf = append(buf, k.Q.CompressedBytes()...)
	buf = append(buf, k.XShare.Bytes()...)
	buf = appendLenPrefixed(buf, k.CKey.Bytes())
	buf = appendLenPrefixed(buf, k.PeerPaillierN.Bytes())

	paillierBlob, err := encodePaillier(k.Paillier)
	if err != nil {
		return nil, NewError(ErrKindGeneral, "keypair.Export", err)
	}
	buf = appendLenPrefixed(buf, paillierBlob)

	buf = appendLenPrefixed(buf, []byte(k.Label))
	return buf, nil
}

// Import decodes a blob previously produced by Export.
func Import(blob []byte) (*Keypair, error) {
	r := &byteReader{buf: blob}

	magic, err := r.u32()
	if err != nil || magic != keypairMagic {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", errors.New("bad magic"))
	}
	version, err := r.u32()
	if err != nil || version != keypairVersion {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", errors.New("bad version"))
	}
	schemeRaw, err := r.u32()
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}
	if Scheme(schemeRaw) != SchemeECDSA2P && Scheme(schemeRaw) != SchemeECDSATN && Scheme(schemeRaw) != SchemeSchnorr2P {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", errors.New("unknown scheme"))
	}
	if Scheme(schemeRaw) != SchemeECDSA2P {
		return nil, NewError(ErrKindUnsupported, "keypair.Import", errors.New("unsupported scheme"))
	}
	kindRaw, err := r.u32()
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}
	if Kind(kindRaw) != KindDevice && Kind(kindRaw) != KindServer {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", errors.New("unknown kind"))
	}
	var keyID [32]byte
	if err := r.fixed(keyID[:]); err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}
	curveRaw, err := r.u32()
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}
	if Curve(curveRaw) != CurveSecp256k1 && Curve(curveRaw) != CurveEd25519 {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", errors.New("unknown curve"))
	}
	if Curve(curveRaw) != CurveSecp256k1 {
		return nil, NewError(ErrKindUnsupported, "keypair.Import", errors.New("unsupported curve"))
	}

	qBytes := make([]byte, 33)
	if err := r.fixed(qBytes); err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}
	q, err := primitives.PointFromCompressedBytes(qBytes)
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}

	xBytes := make([]byte, primitives.CoordSize)
	if err := r.fixed(xBytes); err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}
	xShare, err := primitives.ScalarFromBytes(xBytes)
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}

	cKeyBytes, err := r.lenPrefixed()
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}

	peerNBytes, err := r.lenPrefixed()
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}

	paillierBlob, err := r.lenPrefixed()
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}
	paillier, err := decodePaillier(paillierBlob)
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}

	labelBytes, err := r.lenPrefixed()
	if err != nil {
		return nil, NewError(ErrKindInvalidArgument, "keypair.Import", err)
	}

	return &Keypair{
		Scheme:        Scheme(schemeRaw),
		Kind:          Kind(kindRaw),
		KeyID:         keyID,
		Curve:         Curve(curveRaw),
		Q:             q,
		XShare:        xShare,
		CKey:          new(big.Int).SetBytes(cKeyBytes),
		PeerPaillierN: new(big.Int).SetBytes(peerNBytes),
		Paillier:      paillier,
		Label:         string(labelBytes),
	}, nil
}

// encodePaillier frames a Paillier keypair as:
// n_len(u32) ‖ N ‖ has_priv(u8) ‖ [lambda_len(u32) ‖ lambda ‖ mu_len(u32) ‖ mu].
func encodePaillier(sk *primitives.PaillierPrivateKey) ([]byte, error) {
	if sk == nil {
		return nil, errors.New("keypair requires a paillier keypair")
	}
	buf := make([]byte, 0, 512)
	buf = appendLenPrefixed(buf, sk.N())
	lambda, mu := sk.PrivateParams()
	if lambda == nil || mu == nil {
		buf = append(buf, 0)
		return buf, nil
	}
	buf = append(buf, 1)
	buf = appendLenPrefixed(buf, lambda.Bytes())
	buf = appendLenPrefixed(buf, mu.Bytes())
	return buf, nil
}

func decodePaillier(blob []byte) (*primitives.PaillierPrivateKey, error) {
	r := &byteReader{buf: blob}
	n, err := r.lenPrefixed()
	if err != nil {
		return nil, err
	}
	hasPriv, err := r.u8()
	if err != nil {
		return nil, err
	}
	if hasPriv == 0 {
		return nil, errors.New("keypair paillier blob has no private key")
	}
	lambda, err := r.lenPrefixed()
	if err != nil {
		return nil, err
	}
	mu, err := r.lenPrefixed()
	if err != nil {
		return nil, err
	}
	return primitives.PaillierPrivateKeyFromParams(n, lambda, mu), nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = appendU32(buf, uint32(len(data)))
	return append(buf, data...)
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) u32() (uint32, error) {
	if len(r.buf)-r.pos < 4 {
		return 0, errors.New("truncated u32")
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u8() (byte, error) {
	if len(r.buf)-r.pos < 1 {
		return 0, errors.New("truncated u8")
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) fixed(dst []byte) error {
	if len(r.buf)-r.pos < len(dst) {
		return errors.New("truncated fixed field")
	}
	copy(dst, r.buf[r.pos:r.pos+len(dst)])
	r.pos += len(dst)
	return nil
}

func (r *byteReader) lenPrefixed() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint32(len(r.buf)-r.pos) < n {
		return nil, errors.New("truncated length-prefixed field")
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}
