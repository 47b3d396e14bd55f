package tss

// Curve identifies the elliptic curve a keypair or session is bound to.
// Wire encoding per spec §6: 0=secp256k1, 1=ed25519.
type Curve uint32

const (
	CurveSecp256k1 Curve = 0
	CurveEd25519   Curve = 1 // reserved, unsupported
)

func (c Curve) String() string {
	switch c {
	case CurveSecp256k1:
		return "secp256k1"
	case CurveEd25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

// Scheme identifies the MPC signing scheme. Wire encoding per spec §6:
// 0=ecdsa-2p, 1=ecdsa-tn, 2=schnorr-2p.
type Scheme uint32

const (
	SchemeECDSA2P   Scheme = 0
	SchemeECDSATN   Scheme = 1 // reserved, unsupported (t-of-n)
	SchemeSchnorr2P Scheme = 2 // reserved, unsupported
)

func (s Scheme) String() string {
	switch s {
	case SchemeECDSA2P:
		return "ecdsa-2p"
	case SchemeECDSATN:
		return "ecdsa-tn"
	case SchemeSchnorr2P:
		return "schnorr-2p"
	default:
		return "unknown"
	}
}

// Kind identifies which of the two fixed two-party roles a keypair or
// session belongs to. Wire encoding per spec §6: 0=device, 1=server.
type Kind uint32

const (
	KindDevice Kind = 0
	KindServer Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// partyName is the stable identifier string for each role, matching spec
// §4.2's literal strings. The protocol drivers do not bind it into their
// transcripts; their proofs carry the role as the numeric Kind.
func (k Kind) partyName() string {
	if k == KindDevice {
		return "maany-device"
	}
	return "maany-server"
}

// PartyName returns the stable identifier string for k.
func (k Kind) PartyName() string { return k.partyName() }

// Peer returns the other fixed two-party role.
func (k Kind) Peer() Kind {
	if k == KindDevice {
		return KindServer
	}
	return KindDevice
}

// SigFormat selects the output encoding of a finalized signature. Wire
// encoding per spec §6: 0=DER, 1=raw-RS.
type SigFormat uint32

const (
	SigFormatDer   SigFormat = 0
	SigFormatRawRS SigFormat = 1
)

// StepState reports whether a session's worker has more to do. Wire
// encoding per spec §6: 0=Continue, 1=Done.
type StepState uint32

const (
	StepContinue StepState = 0
	StepDone     StepState = 1
)

func (s StepState) String() string {
	if s == StepDone {
		return "Done"
	}
	return "Continue"
}

// SessionID is optional application bytes bound by the primitives into
// transcript hashing when supported. An empty SessionID means "unbound".
type SessionID []byte

// Clone returns a defensive copy of id, or nil if id is empty.
func (id SessionID) Clone() SessionID {
	if len(id) == 0 {
		return nil
	}
	out := make(SessionID, len(id))
	copy(out, id)
	return out
}

// IsEmpty reports whether id is unbound.
func (id SessionID) IsEmpty() bool { return len(id) == 0 }
