package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/maany-xyz/maany-mpc-core/pkg/tss"
)

// Worker is the callback surface a protocol driver's blocking function
// runs against, mirroring AsyncSession's protected OnSend/OnReceive.
type Worker interface {
	// Send hands one outbound message to the driver side. If a previous
	// Send is still unread, it blocks until Step takes that message — see
	// Session's doc comment on outbound_slot.
	Send(msg []byte) error
	// Recv blocks until the driver side delivers the next inbound
	// message via Step, or the session is aborted/failed.
	Recv() ([]byte, error)
}

// StepOutput is what Step returns each round.
type StepOutput struct {
	// Outbound is the message the worker produced this round, or nil if
	// there was none: either the worker is blocked in Recv (State ==
	// tss.StepContinue) or it returned without a final Send (State ==
	// tss.StepDone).
	Outbound []byte
	State    tss.StepState
}

// Session runs one protocol driver's blocking function on a background
// goroutine and exposes it one Step at a time.
//
// Concurrency note on outbound_slot (spec.md §9's open question): a
// second Send before the driver side has drained the first blocks the
// worker goroutine until Step consumes it — the worker never overwrites
// or drops a pending outbound message. Under a correctly written protocol
// driver (one Send per round, always followed by a Recv or return before
// the next Send) this is unreachable; if it is reached, it converts a
// contract violation into a deadlock that Session.Close's abort path can
// still unwind, rather than silently losing a message.
type Session struct {
	mu   sync.Mutex
	cond *sync.Cond

	workerDone        bool
	aborted           bool
	waitingForInbound bool
	waitRequestID     uint64

	inboundQueue [][]byte
	outboundFull bool
	outbound     []byte
	fatal        *tss.Error

	done chan struct{}
}

// NewSession starts fn on a background goroutine and returns a Session
// the driver side steps through Step. fn must treat the Worker exactly
// like a blocking network peer: Send then Recv, round after round, until
// the protocol concludes.
func NewSession(fn func(w Worker) error) *Session {
	s := &Session{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.run(fn)
	return s
}

func (s *Session) run(fn func(w Worker) error) {
	defer close(s.done)
	err := s.runProtected(fn)

	s.mu.Lock()
	if err != nil && s.fatal == nil {
		s.fatal = toEngineError(err)
		s.aborted = true
	}
	s.workerDone = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *Session) runProtected(fn func(w Worker) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: worker panic: %v", r)
		}
	}()
	return fn(s)
}

// Send implements Worker, mirroring AsyncSession::OnSend.
func (s *Session) Send(msg []byte) error {
	cp := append([]byte(nil), msg...)
	s.mu.Lock()
	for s.outboundFull && !s.aborted && s.fatal == nil {
		s.cond.Wait()
	}
	if s.aborted || s.fatal != nil {
		s.mu.Unlock()
		return errors.New("engine: session aborted")
	}
	s.outbound = cp
	s.outboundFull = true
	s.mu.Unlock()
	s.cond.Broadcast()
	return nil
}

// Recv implements Worker, mirroring AsyncSession::OnReceive.
func (s *Session) Recv() ([]byte, error) {
	s.mu.Lock()
	s.waitingForInbound = true
	s.waitRequestID++
	s.cond.Broadcast()
	for len(s.inboundQueue) == 0 && !s.aborted && s.fatal == nil {
		s.cond.Wait()
	}
	if s.fatal != nil || s.aborted {
		s.mu.Unlock()
		return nil, errors.New("engine: session aborted")
	}
	msg := s.inboundQueue[0]
	s.inboundQueue = s.inboundQueue[1:]
	s.waitingForInbound = false
	s.mu.Unlock()
	return msg, nil
}

// Step delivers one inbound message (hasInbound false means "no message
// this round", matching AwaitStep's empty std::optional case; hasInbound
// true with a zero-length inbound still enqueues an explicit empty
// message) and blocks until the worker either produces outbound data,
// finishes, or makes a fresh Recv request with nothing queued yet.
//
// Ported directly from AsyncSession::AwaitStep's wait_request_id
// snapshot-and-compare technique: Step only reports StepContinue for "the
// worker is now waiting on input" once the worker is waiting and its
// waitRequestID has advanced past the snapshot taken at the start of
// this call, so the driver side is not woken spuriously for a Recv
// the worker was already blocked on before this Step began.
func (s *Session) Step(hasInbound bool, inbound []byte) (StepOutput, error) {
	s.mu.Lock()
	waitSnapshot := s.waitRequestID

	if hasInbound {
		cp := append([]byte(nil), inbound...)
		s.inboundQueue = append(s.inboundQueue, cp)
		s.cond.Broadcast()
	}

	for {
		if s.fatal != nil {
			err := s.fatal
			s.mu.Unlock()
			return StepOutput{}, err
		}
		if s.outboundFull {
			data := s.outbound
			s.outbound = nil
			s.outboundFull = false
			state := tss.StepContinue
			if s.workerDone {
				state = tss.StepDone
			}
			s.mu.Unlock()
			s.cond.Broadcast()
			return StepOutput{Outbound: data, State: state}, nil
		}
		if s.workerDone {
			s.mu.Unlock()
			return StepOutput{State: tss.StepDone}, nil
		}
		if s.waitingForInbound && s.waitRequestID > waitSnapshot {
			s.mu.Unlock()
			return StepOutput{State: tss.StepContinue}, nil
		}
		s.cond.Wait()
	}
}

// IsDone reports whether the worker finished without failure.
func (s *Session) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workerDone && s.fatal == nil
}

// HasFailure reports whether the worker finished with a fatal error.
func (s *Session) HasFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal != nil
}

// Failure returns the session's fatal error, or nil if it has none.
func (s *Session) Failure() *tss.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Close aborts the session if the worker has not already finished, and
// waits for the worker goroutine to exit, mirroring AsyncSession's
// destructor (set aborted_, notify_all, join).
func (s *Session) Close() error {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()
	s.cond.Broadcast()
	<-s.done
	return nil
}

func toEngineError(err error) *tss.Error {
	var e *tss.Error
	if errors.As(err, &e) {
		return e
	}
	return tss.NewError(tss.ErrKindGeneral, "engine.Session", err)
}
