package inflight

import (
	"context"
	"time"
)

// RequestClient performs one request. Cancelling ctx asks the client to abort;
// how quickly it gives up is up to the client.
type RequestClient[P, R any] interface {
	Send(ctx context.Context, payload P) (R, error)
}

// RequestClientFunc adapts a function to RequestClient.
type RequestClientFunc[P, R any] func(ctx context.Context, payload P) (R, error)

func (f RequestClientFunc[P, R]) Send(ctx context.Context, payload P) (R, error) {
	return f(ctx, payload)
}

// Observer receives the terminal outcome of a submission.
type Observer interface {
	OnSucceeded()
	OnFailed()
}

// OutcomeReceiver is implemented by observers that need the outcome of the
// submission they were registered with. ReceiveOutcome runs right before
// OnSucceeded or OnFailed, on the same dispatch.
type OutcomeReceiver[R any] interface {
	ReceiveOutcome(outcome Outcome[R])
}

// ObserverFuncs adapts a pair of functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Succeeded func()
	Failed    func()
}

func (o ObserverFuncs) OnSucceeded() {
	if o.Succeeded != nil {
		o.Succeeded()
	}
}

func (o ObserverFuncs) OnFailed() {
	if o.Failed != nil {
		o.Failed()
	}
}

// Metrics is notified about coordinator transitions.
type Metrics interface {
	SubmissionStarted()
	SubmissionRejected()
	SubmissionCancelled()
	SubmissionFinished(succeeded bool, elapsed time.Duration)
	StaleCompletionDropped()
}

type nopMetrics struct{}

func (nopMetrics) SubmissionStarted() {}
func (nopMetrics) SubmissionRejected() {}
func (nopMetrics) SubmissionCancelled() {}
func (nopMetrics) SubmissionFinished(bool, time.Duration) {}
func (nopMetrics) StaleCompletionDropped() {}
