package registration

import (
	"log/slog"

	"regdemo/go-backend/internal/domains/contracts"
	"regdemo/go-backend/internal/platform/inflight"
	"regdemo/go-backend/internal/platform/notify"
	"regdemo/go-backend/pkg/models"
)

const (
	EventStarted   = "registration.started"
	EventSucceeded = "registration.succeeded"
	EventFailed    = "registration.failed"
)

// EventPayload is published with every registration event. It never carries
// the password or the recovery phrase.
type EventPayload struct {
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id,omitempty"`
	Error        string `json:"error,omitempty"`
	Category     string `json:"category,omitempty"`
}

// HubObserver publishes one submission's outcome on a hub and logs it. It is
// bound to a single submission; the coordinator hands it that submission's
// outcome right before notifying it.
type HubObserver struct {
	hub     *notify.Hub
	logger  *slog.Logger
	outcome Outcome
}

var _ inflight.OutcomeReceiver[models.RegistrationResult] = (*HubObserver)(nil)

func NewHubObserver(hub *notify.Hub, logger *slog.Logger) *HubObserver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HubObserver{hub: hub, logger: logger}
}

func (o *HubObserver) ReceiveOutcome(outcome Outcome) {
	o.outcome = outcome
}

func (o *HubObserver) OnSucceeded() {
	o.logger.Info("registration succeeded",
		"component", "registration.screen",
		"operation", "complete",
		"correlation_id", o.outcome.SubmissionID,
		"user_id", o.outcome.Result.UserID,
	)
	o.hub.Publish(EventSucceeded, o.payload())
}

func (o *HubObserver) OnFailed() {
	attrs := []any{
		"component", "registration.screen",
		"operation", "complete",
		"correlation_id", o.outcome.SubmissionID,
	}
	if o.outcome.Err != nil {
		attrs = append(attrs, "category", contracts.ErrorCategory(o.outcome.Err), "error", o.outcome.Err.Error())
	}
	o.logger.Warn("registration failed", attrs...)
	o.hub.Publish(EventFailed, o.payload())
}

func (o *HubObserver) payload() EventPayload {
	payload := EventPayload{
		SubmissionID: o.outcome.SubmissionID,
		UserID:       o.outcome.Result.UserID,
	}
	if o.outcome.Err != nil {
		payload.Error = o.outcome.Err.Error()
		payload.Category = contracts.ErrorCategory(o.outcome.Err)
	}
	return payload
}
