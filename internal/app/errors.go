package service

import (
	"errors"
	"fmt"

	"github.com/okian/blindtest/internal/domain/model"
)

// Service-level error kinds. Each wraps a model kind so the HTTP layer maps
// it without knowing this package.
var (
	ErrNotStarted          = errors.New("service not started")
	ErrRegistrationClosed  = fmt.Errorf("%w: registration is closed", model.ErrConflict)
	ErrInactiveParticipant = fmt.Errorf("%w: participant is inactive", model.ErrValidation)
	ErrMockDateDisabled    = fmt.Errorf("%w: mock date is disabled", model.ErrNotFound)
)
