package tss

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/logging"
)

// sessionHandle is anything a Context tracks and must be able to sweep on
// Shutdown: engine sessions, in-flight DKG/Sign/Refresh drivers. A
// sessionHandle never blocks Close indefinitely.
type sessionHandle interface {
	Close() error
}

// Context is the process-wide handle spec.md §4.6 describes: it owns the
// injected RNG, secure-zero, and logger callbacks. Shutdown closes every
// session passed to Register and not yet Released; keypairs are not
// tracked, and there is no allocator injection.
//
// Shared resources (spec.md §4.6's "Shared resources" note): the injected
// RNG, zeroize, and logger must be safe for concurrent use by multiple
// sessions, which is why Context hands out io.Reader/func([]byte)/Logger
// values rather than exposing raw callback slots a session could race on.
type Context struct {
	rng     io.Reader
	zeroize func([]byte)
	logger  logging.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]sessionHandle
}

// NewContext constructs a Context from cfg. An omitted (zero-value) Config
// selects the documented defaults: crypto/rand, ZeroizeBytes, and a no-op
// logger.
func NewContext(cfg Config) *Context {
	c := &Context{
		rng:      cfg.RNG,
		zeroize:  cfg.Zeroize,
		logger:   cfg.Logger,
		sessions: make(map[uuid.UUID]sessionHandle),
	}
	if c.rng == nil {
		c.rng = rand.Reader
	}
	if c.zeroize == nil {
		c.zeroize = ZeroizeBytes
	}
	if c.logger == nil {
		c.logger = logging.Noop()
	}
	return c
}

// RNG returns the context's injected entropy source.
func (c *Context) RNG() io.Reader { return c.rng }

// Zeroize overwrites buf using the context's injected secure-zero
// function.
func (c *Context) Zeroize(buf []byte) { c.zeroize(buf) }

// Logger returns the context's injected logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// Register assigns a fresh correlation ID to handle and tracks it for
// Shutdown, returning the ID so callers can tag log lines and transcripts
// with it (matching spec.md §4.6's "single shutdown sweeps everything").
func (c *Context) Register(handle sessionHandle) uuid.UUID {
	id := uuid.New()
	c.mu.Lock()
	c.sessions[id] = handle
	c.mu.Unlock()
	return id
}

// Release stops tracking the session with the given ID, without closing
// it. Callers that already closed a handle themselves should call this to
// avoid Shutdown double-closing it.
func (c *Context) Release(id uuid.UUID) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// Shutdown closes every still-registered session and returns the first
// error encountered, continuing to close the rest. After Shutdown, the
// Context holds no further sessions.
func (c *Context) Shutdown() error {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[uuid.UUID]sessionHandle)
	c.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
