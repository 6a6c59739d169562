package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline and the serving path
var (
	// Training data
	ErrMissingColumn    = errors.New("missing required column")
	ErrRaggedTable      = errors.New("feature columns have different lengths")
	ErrUnparseableValue = errors.New("unparseable value")
	ErrSingleClass      = errors.New("label has fewer than 2 classes")
	ErrEmptyDataset     = errors.New("dataset is empty")

	// Artifact
	ErrArtifactNotFound = errors.New("model artifact not found")
	ErrArtifactCorrupt  = errors.New("model artifact is corrupt or unreadable")
	ErrSchemaMismatch   = errors.New("model artifact schema mismatch")

	// Serving
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrNotFitted      = errors.New("transform or classifier is not fitted")
)

// DataError is a fatal training-data problem. The run aborts and no artifact is written.
type DataError struct {
	Op     string // load, impute, derive, train
	Column string
	Row    int // 1-based data row, 0 when not row specific
	Err    error
}

func (e *DataError) Error() string {
	switch {
	case e.Column != "" && e.Row > 0:
		return fmt.Sprintf("data error (%s): row %d column %s: %v", e.Op, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("data error (%s): column %s: %v", e.Op, e.Column, e.Err)
	default:
		return fmt.Sprintf("data error (%s): %v", e.Op, e.Err)
	}
}

func (e *DataError) Unwrap() error { return e.Err }

// SchemaMismatchError rejects a single prediction request.
// It never affects the loaded model or other requests.
type SchemaMismatchError struct {
	Field  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// IsDataError reports whether err is (or wraps) a DataError
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsArtifactError reports whether err is an artifact load failure
func IsArtifactError(err error) bool {
	return errors.Is(err, ErrArtifactNotFound) ||
		errors.Is(err, ErrArtifactCorrupt) ||
		errors.Is(err, ErrSchemaMismatch)
}
