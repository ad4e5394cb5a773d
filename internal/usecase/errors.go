package usecase

import (
	"errors"

	"masterclass-reconciler/internal/domain"
)

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

func isConflict(err error) bool { return errors.Is(err, domain.ErrConflict) }

func isInvalidSignature(err error) bool { return errors.Is(err, domain.ErrInvalidSignature) }
