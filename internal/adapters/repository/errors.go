package repository

import (
	"fmt"

	"github.com/okian/blindtest/internal/domain/model"
)

// Repository-level sentinels. Both wrap the shared model kinds so callers
// can match either.
var (
	ErrNotFound      = fmt.Errorf("repository: %w", model.ErrNotFound)
	ErrDuplicateDate = fmt.Errorf("repository: session date taken: %w", model.ErrConflict)
	ErrDuplicateName = fmt.Errorf("repository: participant name taken: %w", model.ErrConflict)
	ErrUnknownDriver = fmt.Errorf("repository: %w: unknown store driver", model.ErrValidation)
)
