package service

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/pkg/db"
)

const (
	StepLoadStatus      = "load_status"
	StepInsertHeader    = "insert_header"
	StepUpdateHeader    = "update_header"
	StepDeleteLines     = "delete_lines"
	StepDeleteMovements = "delete_movements"
	StepInsertLines     = "insert_lines"
	StepInsertMovements = "insert_movements"
	StepCommitMirror    = "commit_mirror"
	StepLoadSnapshot    = "load_snapshot"
)

// PersistenceError carries the storage failure verbatim so operators can act on it.
type PersistenceError struct {
	Step   string
	Err    error
	Code   string
	Detail string
	Hint   string
}

func newPersistenceError(step string, err error) *PersistenceError {
	var existing *PersistenceError
	if errors.As(err, &existing) {
		return existing
	}
	detail := db.Describe(err)
	if detail.Code == "" && db.IsDuplicateKeyErr(err) {
		detail.Code = "unique_violation"
	}
	return &PersistenceError{
		Step:   step,
		Err:    err,
		Code:   detail.Code,
		Detail: detail.Detail,
		Hint:   detail.Hint,
	}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == domain.ErrPersistenceFailed
}
