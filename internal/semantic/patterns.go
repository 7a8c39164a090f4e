package semantic

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownPattern is returned when a pattern order names an unknown type.
var ErrUnknownPattern = errors.New("unknown semantic pattern")

// Type is a fine-grained semantic label. The zero value means "none".
type Type string

const (
	None          Type = ""
	UUID          Type = "uuid"
	Email         Type = "email"
	URL           Type = "url"
	CreditCard    Type = "credit_card"
	IPv4          Type = "ipv4"
	IPv6          Type = "ipv6"
	ISODate       Type = "iso_date"
	USDate        Type = "us_date"
	EUDate        Type = "eu_date"
	PostalCodeUS  Type = "postal_code_us"
	PostalCodeUK  Type = "postal_code_uk"
	PostalCodeCA  Type = "postal_code_ca"
	Percentage    Type = "percentage"
	Currency      Type = "currency"
	BooleanText   Type = "boolean_text"
	Phone         Type = "phone"
	// Boolean is assigned to native booleans and 0/1 numeric columns. It has
	// no text pattern.
	Boolean Type = "boolean"
)

// IsDate reports whether t is one of the date-like text patterns.
func (t Type) IsDate() bool {
	return t == ISODate || t == USDate || t == EUDate
}

// MarshalJSON renders None as null.
func (t Type) MarshalJSON() ([]byte, error) {
	if t == None {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON accepts null as None.
func (t *Type) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = None
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = Type(s)
	return nil
}

// MarshalYAML renders None as null.
func (t Type) MarshalYAML() (any, error) {
	if t == None {
		return nil, nil
	}
	return string(t), nil
}

// DefaultOrder is the evaluation order of the built-in patterns, most
// specific first. Phone accepts almost any digit run and stays last.
var DefaultOrder = []Type{
	UUID,
	Email,
	URL,
	CreditCard,
	IPv4,
	IPv6,
	ISODate,
	USDate,
	EUDate,
	PostalCodeUS,
	PostalCodeUK,
	PostalCodeCA,
	Percentage,
	Currency,
	BooleanText,
	Phone,
}

var expressions = map[Type]string{
	Email:        `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`,
	URL:          `^https?://[\w\-\.]+(:\d+)?(/[\w\-\./?%&=]*)?$`,
	Phone:        `^[\+]?[(]?[0-9]{1,4}[)]?[-\s\.]?[(]?[0-9]{1,4}[)]?[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,9}$`,
	Currency:     `^[\$€£¥₹]?\s*-?\d{1,3}(,?\d{3})*(\.\d{2})?(\s*[\$€£¥₹])?$`,
	Percentage:   `^-?\d+(\.\d+)?%$`,
	UUID:         `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`,
	IPv4:         `^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`,
	IPv6:         `^(([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}|([0-9a-fA-F]{1,4}:){1,7}:|([0-9a-fA-F]{1,4}:){1,6}:[0-9a-fA-F]{1,4}|([0-9a-fA-F]{1,4}:){1,5}(:[0-9a-fA-F]{1,4}){1,2})$`,
	PostalCodeUS: `^\d{5}(-\d{4})?$`,
	PostalCodeUK: `^[A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2}$`,
	PostalCodeCA: `^[A-Z]\d[A-Z]\s?\d[A-Z]\d$`,
	CreditCard:   `^(\*{12}\d{4}|\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?\d{4})$`,
	BooleanText:  `^(true|false|yes|no|y|n|t|f|0|1)$`,
	ISODate:      `^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?)?$`,
	USDate:       `^(0?[1-9]|1[0-2])[-/](0?[1-9]|[12]\d|3[01])[-/]\d{2,4}$`,
	EUDate:       `^(0?[1-9]|[12]\d|3[01])[-/.](0?[1-9]|1[0-2])[-/.]\d{2,4}$`,
}

var caseInsensitive = map[Type]bool{
	BooleanText:  true,
	PostalCodeUK: true,
	PostalCodeCA: true,
}

var compiled = func() map[Type]*regexp.Regexp {
	out := make(map[Type]*regexp.Regexp, len(expressions))
	for t, expr := range expressions {
		if caseInsensitive[t] {
			expr = "(?i)" + expr
		}
		out[t] = regexp.MustCompile(expr)
	}
	return out
}()

// Pattern is a named matcher with its position in the evaluation order.
type Pattern struct {
	Name     Type
	Priority int
	Match    func(string) bool
}

// Library is an immutable, ordered set of patterns.
type Library struct {
	patterns []Pattern
}

// Known returns every built-in pattern name in default order.
func Known() []Type {
	out := make([]Type, len(DefaultOrder))
	copy(out, DefaultOrder)
	return out
}

// ParseOrder converts configured names into pattern types, validating each.
func ParseOrder(names []string) ([]Type, error) {
	out := make([]Type, 0, len(names))
	for _, n := range names {
		t := Type(strings.ToLower(strings.TrimSpace(n)))
		if _, ok := compiled[t]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, n)
		}
		out = append(out, t)
	}
	return out, nil
}

// NewLibrary builds a library evaluating the built-in patterns in the given
// order. An empty order selects DefaultOrder. Patterns left out of a custom
// order are never evaluated.
func NewLibrary(order []Type) (*Library, error) {
	if len(order) == 0 {
		order = DefaultOrder
	}
	seen := make(map[Type]bool, len(order))
	patterns := make([]Pattern, 0, len(order))
	for i, t := range order {
		re, ok := compiled[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, t)
		}
		if seen[t] {
			return nil, fmt.Errorf("pattern %q listed twice", t)
		}
		seen[t] = true
		patterns = append(patterns, Pattern{Name: t, Priority: i, Match: re.MatchString})
	}
	return &Library{patterns: patterns}, nil
}

// NewCustomLibrary wraps caller-supplied matchers. Priorities follow slice order.
func NewCustomLibrary(patterns ...Pattern) *Library {
	out := make([]Pattern, len(patterns))
	for i, p := range patterns {
		p.Priority = i
		out[i] = p
	}
	return &Library{patterns: out}
}

// DefaultLibrary returns the built-in library in default order.
func DefaultLibrary() *Library {
	lib, err := NewLibrary(nil)
	if err != nil {
		panic(err)
	}
	return lib
}

// Patterns returns a copy of the ordered patterns.
func (l *Library) Patterns() []Pattern {
	out := make([]Pattern, len(l.patterns))
	copy(out, l.patterns)
	return out
}

// Lookup returns the pattern registered under name.
func (l *Library) Lookup(name Type) (Pattern, bool) {
	for _, p := range l.patterns {
		if p.Name == name {
			return p, true
		}
	}
	return Pattern{}, false
}
