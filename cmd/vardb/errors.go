package main

import (
	"errors"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
)

// describeError prefixes err with what the user can do about it.
func describeError(err error) string {
	switch {
	case errors.Is(err, entities.ErrStateConflict):
		return "conflict: " + err.Error()
	case errors.Is(err, entities.ErrNotFound):
		return "not found: " + err.Error()
	case errors.Is(err, entities.ErrStoreTransient):
		return "please retry: " + err.Error()
	case errors.Is(err, entities.ErrInternalInconsistency):
		return "data inconsistency, contact an administrator: " + err.Error()
	case errors.Is(err, entities.ErrInvalidInput):
		return "invalid input: " + err.Error()
	default:
		return err.Error()
	}
}
