package composer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCount             = errors.New("section count must be a positive integer")
	ErrInvalidCeiling           = errors.New("point ceiling must not be negative")
	ErrInvalidType              = errors.New("unknown question type")
	ErrInvalidVersionCount      = errors.New("version count out of range")
	ErrInvalidTarget            = errors.New("target points must be positive")
	ErrUnknownSection           = errors.New("section not found")
	ErrQuestionNotInComposition = errors.New("question is not part of the composition")
	ErrNoSections               = errors.New("template has no sections")
	ErrNotReady                 = errors.New("composition is not ready")
	// ErrSuperseded is returned when the configuration changed while a
	// fetch was in flight. The result of that fetch is discarded.
	ErrSuperseded = errors.New("composition superseded by a newer configuration")
)

// FetchError wraps a failure of the question-query collaborator.
// The previous Ready composition is left untouched when one is returned.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err wraps a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
