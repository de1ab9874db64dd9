package workflow

import (
	"errors"
	"fmt"

	"carebridge/internal/models"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	KindUnexpected Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidStageTransition carries the current stage in the message so the
// caller can surface an actionable error; it never coerces.
func InvalidStageTransition(current, required models.CaseStage, action Action) *Error {
	return Forbiddenf("invalid stage transition: case is in %s, %s requires %s",
		current, action, required)
}

// KindOf extracts the Kind; non-workflow errors map to KindUnexpected.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindUnexpected
}
