package tss

import (
	"io"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss/logging"
)

// Config expresses the injections spec.md §4.6 allows a host to make into
// a Context. Every field is optional; leaving it zero selects the
// documented default.
type Config struct {
	// RNG is the entropy source every scalar draw, Paillier keygen, and
	// ZK commitment in this module routes through. Defaults to
	// crypto/rand.Reader.
	RNG io.Reader

	// Zeroize overwrites sensitive buffers this module releases (see
	// ZeroizeBytes for which ones). Defaults to ZeroizeBytes.
	Zeroize func([]byte)

	// Logger receives structured, redacted diagnostics from the protocol
	// drivers. Defaults to a no-op logger.
	Logger logging.Logger
}
