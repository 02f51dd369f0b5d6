// Package coordinator drives the client-side generation lifecycle: it issues
// monotonic request ids, aborts superseded in-flight requests, and guarantees
// a late-arriving response for an abandoned request can never overwrite the
// result of a newer one.
package coordinator

import (
	"context"
	"sync"
)

// Phase is the lifecycle state consumed by the presentation layer.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePending  Phase = "pending"
	PhaseSuccess  Phase = "success"
	PhaseError    Phase = "error"
	PhaseCanceled Phase = "canceled"
)

// Snapshot is the observable coordinator state.
type Snapshot struct {
	Phase                 Phase
	ActiveRequestID       int64
	LastFinishedRequestID int64
	ResultRecordID        string
	ErrorMessage          string
}

// Transition messages applied by the reducer.
type message interface{ requestID() int64 }

type msgStart struct{ id int64 }
type msgSuccess struct {
	id       int64
	recordID string
}
type msgError struct {
	id     int64
	reason string
}
type msgCancel struct{ id int64 }

func (m msgStart) requestID() int64   { return m.id }
func (m msgSuccess) requestID() int64 { return m.id }
func (m msgError) requestID() int64   { return m.id }
func (m msgCancel) requestID() int64  { return m.id }

// reduce is the pure transition function. Completion messages whose request
// id no longer matches the active one fall through unchanged: a superseded
// request's outcome is ignored entirely.
func reduce(s Snapshot, m message) Snapshot {
	switch msg := m.(type) {
	case msgStart:
		s.Phase = PhasePending
		s.ActiveRequestID = msg.id
		return s
	case msgSuccess:
		if s.ActiveRequestID != msg.id {
			return s
		}
		s.Phase = PhaseSuccess
		s.ActiveRequestID = 0
		s.LastFinishedRequestID = msg.id
		s.ResultRecordID = msg.recordID
		s.ErrorMessage = ""
		return s
	case msgError:
		if s.ActiveRequestID != msg.id {
			return s
		}
		s.Phase = PhaseError
		s.ActiveRequestID = 0
		s.LastFinishedRequestID = msg.id
		s.ErrorMessage = msg.reason
		return s
	case msgCancel:
		if s.ActiveRequestID != msg.id {
			return s
		}
		s.Phase = PhaseCanceled
		s.ActiveRequestID = 0
		s.LastFinishedRequestID = msg.id
		return s
	default:
		return s
	}
}

// Coordinator holds at most one active generation request at a time.
type Coordinator struct {
	mu      sync.Mutex
	state   Snapshot
	counter int64
	abort   context.CancelFunc
}

func New() *Coordinator {
	return &Coordinator{state: Snapshot{Phase: PhaseIdle}}
}

// Request is the guard handed to the caller by Start. Its completion
// callbacks are no-ops once the request has been superseded.
type Request struct {
	c   *Coordinator
	id  int64
	ctx context.Context
}

// RequestID returns the monotonic id allocated to this request.
func (r *Request) RequestID() int64 { return r.id }

// Context is canceled when a newer request supersedes this one.
func (r *Request) Context() context.Context { return r.ctx }

// Start aborts any in-flight request, allocates the next request id, and
// transitions to pending. The returned guard carries the abort context and
// the completion callbacks.
func (c *Coordinator) Start(parent context.Context) *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.abort != nil {
		c.abort()
	}

	c.counter++
	id := c.counter
	ctx, cancel := context.WithCancel(parent)
	c.abort = cancel
	c.state = reduce(c.state, msgStart{id: id})

	return &Request{c: c, id: id, ctx: ctx}
}

// OnSuccess records the generated record id. No-op if superseded.
func (r *Request) OnSuccess(recordID string) {
	r.c.apply(msgSuccess{id: r.id, recordID: recordID})
}

// OnError records the failure reason. No-op if superseded.
func (r *Request) OnError(reason string) {
	r.c.apply(msgError{id: r.id, reason: reason})
}

// OnCancel marks the request canceled. No-op if superseded.
func (r *Request) OnCancel() {
	r.c.apply(msgCancel{id: r.id})
}

func (c *Coordinator) apply(m message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = reduce(c.state, m)
}

// State returns the current snapshot.
func (c *Coordinator) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsGenerating reports whether a request is in flight.
func (c *Coordinator) IsGenerating() bool {
	return c.State().Phase == PhasePending
}

// ShowSuccess reports whether a success banner should be shown for the given
// request id: true only when that exact request finished successfully, so a
// stale success never surfaces on a view that has moved on.
func (c *Coordinator) ShowSuccess(requestID int64) bool {
	s := c.State()
	return s.Phase == PhaseSuccess && s.LastFinishedRequestID == requestID
}
