package analysis

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/tablescope/internal/classify"
)

var (
	// ErrColumnNotFound is returned for a column name the table does not have.
	ErrColumnNotFound = errors.New("column not found")
	// ErrUnsupportedType is returned for a base type outside the supported set.
	ErrUnsupportedType = classify.ErrUnknownBaseType
	// ErrNotConvertible is returned when a column's values cannot take the
	// requested type.
	ErrNotConvertible = classify.ErrNotConvertible
)

// OverrideError describes a rejected type override.
type OverrideError struct {
	Column string
	Type   string
	Err    error
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("override %q to %q: %v", e.Column, e.Type, e.Err)
}

func (e *OverrideError) Unwrap() error { return e.Err }
