package ecdsa2p

import (
	"sync"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
	"github.com/maany-xyz/maany-mpc-core/pkg/tss/engine"
)

// Worker is the callback surface a protocol's blocking body runs against;
// it is exactly engine.Worker, re-exported here so callers building a
// driver body in this package never need to import pkg/tss/engine
// directly.
type Worker = engine.Worker

// Driver is a running protocol session, stepped one round at a time by a
// host that cannot block, finishing with a typed result once the
// underlying engine.Session reports done. It mirrors the teacher's
// Key/Close-then-finalizer shape in spirit, but surfaces progress through
// Step/IsDone instead of a single blocking call, per spec.md §4.1.
type Driver struct {
	session *engine.Session

	mu     sync.Mutex
	result interface{}
	err    error
}

func newDriver(body func(w Worker) (interface{}, error)) *Driver {
	d := &Driver{}
	d.session = engine.NewSession(func(w engine.Worker) error {
		res, err := body(w)
		d.mu.Lock()
		d.result = res
		d.err = err
		d.mu.Unlock()
		return err
	})
	return d
}

// Step advances the session by one round, delivering inbound (if any) and
// returning the round's outbound message and whether the protocol is done.
func (d *Driver) Step(hasInbound bool, inbound []byte) (engine.StepOutput, error) {
	return d.session.Step(hasInbound, inbound)
}

// IsDone reports whether the protocol concluded without error.
func (d *Driver) IsDone() bool { return d.session.IsDone() }

// HasFailure reports whether the protocol concluded with a fatal error.
func (d *Driver) HasFailure() bool { return d.session.HasFailure() }

// Failure returns the protocol's fatal error, if any.
func (d *Driver) Failure() *tss.Error { return d.session.Failure() }

// Close aborts the session if still running and releases its goroutine.
func (d *Driver) Close() error { return d.session.Close() }

// finalize returns the driver's typed result once IsDone reports true. If
// the session failed it returns that failure; otherwise, if called
// earlier, it is an *Error with ErrKindProtocolState.
func (d *Driver) finalize() (interface{}, error) {
	if !d.session.IsDone() {
		if f := d.session.Failure(); f != nil {
			return nil, f
		}
		return nil, tss.NewError(tss.ErrKindProtocolState, "ecdsa2p.Driver.finalize", errProtocolNotDone)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.err
}

var errProtocolNotDone = protocolNotDoneErr{}

type protocolNotDoneErr struct{}

func (protocolNotDoneErr) Error() string { return "session has not reached StepDone yet" }
