package registration

import (
	"regdemo/go-backend/internal/platform/inflight"
	"regdemo/go-backend/pkg/models"
)

const coordinatorName = "registration"

type (
	Client      = inflight.RequestClient[models.RegistrationForm, models.RegistrationResult]
	Coordinator = inflight.Coordinator[models.RegistrationForm, models.RegistrationResult]
	Outcome     = inflight.Outcome[models.RegistrationResult]
)

// NewCoordinator builds a coordinator for registration requests. An empty
// opts.Name is replaced with "registration".
func NewCoordinator(client Client, opts inflight.Options) (*Coordinator, error) {
	if opts.Name == "" {
		opts.Name = coordinatorName
	}
	return inflight.New[models.RegistrationForm, models.RegistrationResult](client, opts)
}
