package data

import "errors"

var (
	ErrMissingRequiredField      = errors.New("missing required field")
	ErrNoSuchField               = errors.New("no such field")
	ErrInvalidRecord             = errors.New("invalid record type")
	ErrClassResolution           = errors.New("class resolution failed")
	ErrAmbiguousElementType      = errors.New("ambiguous element type")
	ErrMissingRecordClass        = errors.New("missing record class")
	ErrIncompatibleElement       = errors.New("incompatible element")
	ErrUnexpectedContainer       = errors.New("unexpected container type")
	ErrNoFilterCriteria          = errors.New("either keep or drop values must be provided")
	ErrConflictingFilterCriteria = errors.New("keep and drop values are mutually exclusive")
	ErrIndexOutOfRange           = errors.New("index out of range")
	ErrUnhashableValue           = errors.New("field value cannot be used as a key")
)
