package inflight

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultCoordinatorName = "inflight"

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	// Name is used as the log component and to tell coordinators apart.
	Name       string
	Logger     *slog.Logger
	Metrics    Metrics
	Dispatcher Dispatcher
	Now        func() time.Time
	NewID      func() string
}

// Outcome is the terminal result of the most recent completed submission.
type Outcome[R any] struct {
	SubmissionID string
	Result       R
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

func (o Outcome[R]) Succeeded() bool {
	return o.Err == nil
}

type pendingRequest struct {
	generation uint64
	id         string
	cancel     context.CancelFunc
	startedAt  time.Time
}

// observerRef is a revocable back reference. The coordinator never owns the
// observer; revoke makes every later notification a no-op.
type observerRef struct {
	mu       sync.Mutex
	observer Observer
}

func (r *observerRef) load() Observer {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observer
}

func (r *observerRef) revoke() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.observer = nil
	r.mu.Unlock()
}

// Coordinator allows at most one request in flight and delivers each
// submission's outcome to its observer at most once.
type Coordinator[P, R any] struct {
	client     RequestClient[P, R]
	name       string
	logger     *slog.Logger
	metrics    Metrics
	dispatcher Dispatcher
	now        func() time.Time
	newID      func() string

	mu         sync.Mutex
	state      State
	generation uint64
	pending    *pendingRequest
	observer   *observerRef
	last       *Outcome[R]
	closed     bool
	workers    sync.WaitGroup
}

func New[P, R any](client RequestClient[P, R], opts Options) (*Coordinator[P, R], error) {
	if client == nil {
		return nil, ErrNilClient
	}
	c := &Coordinator[P, R]{
		client:     client,
		name:       strings.TrimSpace(opts.Name),
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		dispatcher: opts.Dispatcher,
		now:        opts.Now,
		newID:      opts.NewID,
		state:      StateIdle,
	}
	if c.name == "" {
		c.name = defaultCoordinatorName
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	if c.dispatcher == nil {
		c.dispatcher = Inline{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c, nil
}

// Submit starts a request for payload and returns its submission id without
// waiting for the client. ctx bounds the request itself. It fails with
// ErrAlreadyInFlight while another submission is outstanding and with
// ErrClosed after Close. A nil observer, including a typed nil pointer,
// submits without notification.
func (c *Coordinator[P, R]) Submit(ctx context.Context, payload P, observer Observer) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if isNilObserver(observer) {
		observer = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}
	if c.state == StateSubmitting {
		c.metrics.SubmissionRejected()
		c.logWarn("submit", c.pending.id, "duplicate submission rejected")
		return "", ErrAlreadyInFlight
	}

	c.generation++
	id := c.newID()
	reqCtx, cancel := context.WithCancel(WithSubmissionID(ctx, id))
	p := &pendingRequest{
		generation: c.generation,
		id:         id,
		cancel:     cancel,
		startedAt:  c.now(),
	}
	c.pending = p
	c.state = StateSubmitting
	c.observer = &observerRef{observer: observer}
	c.metrics.SubmissionStarted()
	c.logInfo("submit", id, "submission started", "generation", p.generation)

	c.workers.Add(1)
	go c.run(reqCtx, p, payload)
	return id, nil
}

// Cancel abandons the outstanding request without notifying its observer and
// returns the coordinator to Idle. It reports whether a request was cancelled.
func (c *Coordinator[P, R]) Cancel() bool {
	c.mu.Lock()
	if c.state != StateSubmitting || c.pending == nil {
		c.mu.Unlock()
		return false
	}
	p := c.pending
	c.pending = nil
	c.state = StateIdle
	c.mu.Unlock()

	p.cancel()
	c.metrics.SubmissionCancelled()
	c.logInfo("cancel", p.id, "submission cancelled", "generation", p.generation)
	return true
}

// DetachObserver stops notifications to the current observer. The outstanding
// request, if any, keeps running and completes silently.
func (c *Coordinator[P, R]) DetachObserver() {
	c.mu.Lock()
	ref := c.observer
	c.observer = nil
	c.mu.Unlock()
	ref.revoke()
}

// Close cancels any outstanding request, detaches the observer and waits for
// the coordinator's goroutines to exit or ctx to end. Submit fails afterwards.
func (c *Coordinator[P, R]) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.Cancel()
	c.DetachObserver()

	drained := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator[P, R]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome returns the outcome of the most recent completed submission.
func (c *Coordinator[P, R]) LastOutcome() (Outcome[R], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Outcome[R]{}, false
	}
	return *c.last, true
}

func (c *Coordinator[P, R]) run(ctx context.Context, p *pendingRequest, payload P) {
	defer c.workers.Done()
	result, err := c.send(ctx, payload)
	c.complete(p, result, err)
}

func (c *Coordinator[P, R]) send(ctx context.Context, payload P) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrClientPanic, r)
		}
	}()
	return c.client.Send(ctx, payload)
}

func (c *Coordinator[P, R]) complete(p *pendingRequest, result R, err error) {
	c.mu.Lock()
	if c.state != StateSubmitting || c.pending == nil || c.pending.generation != p.generation {
		c.mu.Unlock()
		p.cancel()
		c.metrics.StaleCompletionDropped()
		c.logger.Debug("stale completion dropped",
			"component", c.name,
			"operation", "complete",
			"correlation_id", p.id,
			"generation", p.generation,
		)
		return
	}
	c.pending = nil
	c.state = StateCompleted
	ref := c.observer
	outcome := Outcome[R]{
		SubmissionID: p.id,
		Result:       result,
		Err:          err,
		StartedAt:    p.startedAt,
		FinishedAt:   c.now(),
	}
	c.last = &outcome
	c.mu.Unlock()

	p.cancel()
	succeeded := err == nil
	c.metrics.SubmissionFinished(succeeded, outcome.FinishedAt.Sub(outcome.StartedAt))
	if succeeded {
		c.logInfo("complete", p.id, "submission succeeded")
	} else {
		c.logWarn("complete", p.id, "submission failed", "error", err.Error())
	}

	c.dispatcher.Dispatch(func() {
		observer := ref.load()
		if observer == nil {
			return
		}
		if receiver, ok := observer.(OutcomeReceiver[R]); ok {
			receiver.ReceiveOutcome(outcome)
		}
		if succeeded {
			observer.OnSucceeded()
			return
		}
		observer.OnFailed()
	})
}

func isNilObserver(observer Observer) bool {
	if observer == nil {
		return true
	}
	v := reflect.ValueOf(observer)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func (c *Coordinator[P, R]) logInfo(operation, correlationID, message string, attrs ...any) {
	base := []any{
		"component", c.name,
		"operation", operation,
		"correlation_id", correlationID,
	}
	c.logger.Info(message, append(base, attrs...)...)
}

func (c *Coordinator[P, R]) logWarn(operation, correlationID, message string, attrs ...any) {
	base := []any{
		"component", c.name,
		"operation", operation,
		"correlation_id", correlationID,
	}
	c.logger.Warn(message, append(base, attrs...)...)
}
