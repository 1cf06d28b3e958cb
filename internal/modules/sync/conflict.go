package sync

import (
	"errors"

	"github.com/suqhub/suq-backend/internal/errs"
)

// Error type values recorded in sync_errors.
const (
	errTypeConflict   = "conflict"
	errTypeValidation = "validation"
	errTypeNotFound   = "not_found"
	errTypeInternal   = "internal"
)

// classify maps an action failure to a sync_errors type and, for
// conflicts, a kind label for metrics. Stock insufficiency is the only
// hard conflict: scalar fields are last-write-wins and duplicate sales
// are swallowed upstream, so neither reaches here.
func classify(err error) (errorType, conflictKind string) {
	switch {
	case errors.Is(err, errs.ErrInsufficientStock):
		return errTypeConflict, "stock"
	case errors.Is(err, errs.ErrValidation):
		return errTypeValidation, ""
	case errors.Is(err, errs.ErrNotFound):
		return errTypeNotFound, ""
	default:
		return errTypeInternal, ""
	}
}
