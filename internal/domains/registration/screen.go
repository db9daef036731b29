package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"regdemo/go-backend/internal/platform/inflight"
	"regdemo/go-backend/internal/platform/notify"
	"regdemo/go-backend/pkg/models"
)

const (
	// DismissCancel aborts the outstanding request when the screen goes away.
	DismissCancel = "cancel"
	// DismissDetach lets the request finish but stops notifications.
	DismissDetach = "detach"

	defaultEventBacklog = 64
)

type ScreenOptions struct {
	Client        Client
	DismissPolicy string
	Logger        *slog.Logger
	Metrics       inflight.Metrics
	Hub           *notify.Hub
	// EventBuffer sizes each event subscriber's channel when Hub is nil.
	EventBuffer int
}

// Screen is the host side of a registration form. It submits through one
// coordinator and receives outcomes on its own event loop.
type Screen struct {
	coordinator *Coordinator
	loop        *inflight.Loop
	stopLoop    context.CancelFunc
	hub         *notify.Hub
	policy      string
	logger      *slog.Logger
	closeOnce   sync.Once
	closeErr    error
}

func NewScreen(opts ScreenOptions) (*Screen, error) {
	policy := strings.ToLower(strings.TrimSpace(opts.DismissPolicy))
	switch policy {
	case "":
		policy = DismissCancel
	case DismissCancel, DismissDetach:
	default:
		return nil, fmt.Errorf("registration: unknown dismiss policy %q", opts.DismissPolicy)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	hub := opts.Hub
	if hub == nil {
		hub = notify.NewHub(defaultEventBacklog, notify.WithSubscriberBuffer(opts.EventBuffer))
	}

	loop := inflight.NewLoop()
	coordinator, err := NewCoordinator(opts.Client, inflight.Options{
		Name:       coordinatorName,
		Logger:     logger,
		Metrics:    opts.Metrics,
		Dispatcher: loop,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	return &Screen{
		coordinator: coordinator,
		loop:        loop,
		stopLoop:    cancel,
		hub:         hub,
		policy:      policy,
		logger:      logger,
	}, nil
}

// Submit starts registering form and returns the submission id. While a
// submission is outstanding further submits fail with inflight.ErrAlreadyInFlight.
func (s *Screen) Submit(ctx context.Context, form models.RegistrationForm) (string, error) {
	id, err := s.coordinator.Submit(ctx, form, s.observer())
	if err != nil {
		if errors.Is(err, inflight.ErrAlreadyInFlight) {
			s.logger.Info("registration already in progress",
				"component", "registration.screen",
				"operation", "submit",
				"form", form,
			)
		}
		return "", err
	}
	s.logger.Info("registration submitted",
		"component", "registration.screen",
		"operation", "submit",
		"correlation_id", id,
		"form", form,
	)
	s.hub.Publish(EventStarted, EventPayload{SubmissionID: id})
	return id, nil
}

// Dismiss tears the form down under the configured policy. It reports whether
// a submission was outstanding.
func (s *Screen) Dismiss() bool {
	outstanding := s.coordinator.State() == inflight.StateSubmitting
	switch s.policy {
	case DismissDetach:
		s.coordinator.DetachObserver()
	default:
		outstanding = s.coordinator.Cancel()
	}
	s.logger.Info("registration screen dismissed",
		"component", "registration.screen",
		"operation", "dismiss",
		"policy", s.policy,
		"outstanding", outstanding,
	)
	return outstanding
}

// Close cancels any outstanding submission and stops the event loop. It waits
// for both until ctx ends.
func (s *Screen) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		err := s.coordinator.Close(ctx)
		s.loop.Close()
		s.stopLoop()
		select {
		case <-s.loop.Stopped():
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
		s.closeErr = err
	})
	return s.closeErr
}

func (s *Screen) State() inflight.State {
	return s.coordinator.State()
}

// Events returns retained registration events newer than fromSeq and a
// channel of later ones. Call the returned func to unsubscribe.
func (s *Screen) Events(fromSeq int64) ([]notify.Event, <-chan notify.Event, func()) {
	return s.hub.Subscribe(fromSeq)
}

// LastResult returns the outcome of the most recent completed submission.
func (s *Screen) LastResult() (Outcome, bool) {
	return s.coordinator.LastOutcome()
}

func (s *Screen) observer() inflight.Observer {
	return NewHubObserver(s.hub, s.logger)
}
