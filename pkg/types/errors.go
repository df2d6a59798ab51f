package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the stage at which a request failed
type ErrorKind string

const (
	KindClassification ErrorKind = "classification"
	KindResolution     ErrorKind = "resolution"
	KindDetection      ErrorKind = "detection"
	KindRegionEdit     ErrorKind = "region_edit"
	KindLoad           ErrorKind = "load"
	KindSave           ErrorKind = "save"
	KindModel          ErrorKind = "model"
	KindNoImage        ErrorKind = "no_image"
	KindInternal       ErrorKind = "internal"
)

// StageError wraps a failure with its kind and the stage that produced it
type StageError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

// NewStageError wraps err; a nil err yields nil
func NewStageError(kind ErrorKind, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost StageError in err's chain,
// or KindInternal if there is none.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// ErrNoImage is returned when an image action runs without a loaded image
var ErrNoImage = errors.New("no image loaded")
