package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tablescope/internal/semantic"
)

var (
	// ErrUnknownBaseType is returned when parsing an unsupported base type name.
	ErrUnknownBaseType = errors.New("unknown base type")
	// ErrUnknownPolicy is returned when parsing an unsupported policy name.
	ErrUnknownPolicy = errors.New("unknown classification policy")
	// ErrNotConvertible is returned when a column cannot be reinterpreted as
	// the requested base type.
	ErrNotConvertible = errors.New("values cannot be converted")
)

// BaseType is the coarse classification driving which profile is computed.
type BaseType string

const (
	Numeric     BaseType = "numeric"
	Categorical BaseType = "categorical"
	Text        BaseType = "text"
	Datetime    BaseType = "datetime"
	ID          BaseType = "id"
)

// BaseTypes lists every supported base type.
func BaseTypes() []BaseType {
	return []BaseType{Numeric, Categorical, Text, Datetime, ID}
}

// Valid reports whether b is one of the supported base types.
func (b BaseType) Valid() bool {
	switch b {
	case Numeric, Categorical, Text, Datetime, ID:
		return true
	}
	return false
}

// ParseBaseType parses a base type name, case-insensitively.
func ParseBaseType(s string) (BaseType, error) {
	b := BaseType(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownBaseType, s)
	}
	return b, nil
}

// Classification is the record kept for every column.
type Classification struct {
	BaseType     BaseType      `json:"type" yaml:"type"`
	SemanticType semantic.Type `json:"semantic_type" yaml:"semantic_type"`
	Confidence   float64       `json:"confidence" yaml:"confidence"`
}

// Policy selects how identifier-like columns are treated.
type Policy int

const (
	// SemanticOnly never assigns the id base type; numeric postal codes are
	// recognised through pattern confidence.
	SemanticOnly Policy = iota
	// NameAwareID classifies numeric or text columns whose name starts or
	// ends with the token "id" as identifiers.
	NameAwareID
)

func (p Policy) String() string {
	switch p {
	case NameAwareID:
		return "name_aware_id"
	default:
		return "semantic_only"
	}
}

// ParsePolicy accepts "semantic_only" or "name_aware_id" in any case, with
// dashes or underscores.
func ParsePolicy(s string) (Policy, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "", "semantic", "semantic_only":
		return SemanticOnly, nil
	case "name_aware_id", "name_aware", "id":
		return NameAwareID, nil
	}
	return SemanticOnly, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}
