package table

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DateTimeLayout is the layout used whenever a temporal value is rendered as text.
const DateTimeLayout = "2006-01-02 15:04:05"

var (
	// ErrRaggedColumns is returned when columns do not share one row count.
	ErrRaggedColumns = errors.New("columns have different lengths")
	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Kind describes the native value type held by a column.
type Kind int

const (
	KindEmpty Kind = iota
	KindBool
	KindNumeric
	KindTime
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumeric:
		return "numeric"
	case KindTime:
		return "time"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// Column is a named, ordered sequence of values. Values are nil (missing),
// bool, int64, float64, string or time.Time.
type Column struct {
	Name   string
	Values []any
}

// NewColumn normalizes values into the supported native set. NaN becomes nil,
// all integer widths become int64 and float32 becomes float64.
func NewColumn(name string, values []any) *Column {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return &Column{Name: name, Values: out}
}

// Normalize maps a loosely typed value onto the native value set.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string, int64:
		return x
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case float32:
		f := float64(x)
		if math.IsNaN(f) {
			return nil
		}
		return f
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64(x)
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil
		}
		return *x
	default:
		return cast.ToString(x)
	}
}

// Len returns the row count of the column.
func (c *Column) Len() int { return len(c.Values) }

// NullCount returns the number of missing values.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// NonNull returns the non-missing values in their original order.
func (c *Column) NonNull() []any {
	out := make([]any, 0, len(c.Values))
	for _, v := range c.Values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// Kind reports the native kind of the column. Columns mixing kinds (other
// than integers with floats) are text.
func (c *Column) Kind() Kind {
	kind := KindEmpty
	for _, v := range c.Values {
		var k Kind
		switch v.(type) {
		case nil:
			continue
		case bool:
			k = KindBool
		case int64, float64:
			k = KindNumeric
		case time.Time:
			k = KindTime
		default:
			k = KindText
		}
		if kind == KindEmpty {
			kind = k
			continue
		}
		if kind != k {
			return KindText
		}
	}
	return kind
}

// Unique returns the count of distinct non-null values.
func (c *Column) Unique() int {
	return len(Distinct(c.Values))
}

// Clone returns a deep copy of the column's value slice under the same name.
func (c *Column) Clone() *Column {
	vals := make([]any, len(c.Values))
	copy(vals, c.Values)
	return &Column{Name: c.Name, Values: vals}
}

// Table is an ordered set of equally long columns.
type Table struct {
	Columns []*Column
}

// New builds a table and checks that all columns have the same length and
// distinct names.
func New(cols ...*Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if _, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = struct{}{}
		if i > 0 && c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("%w: %q has %d rows, %q has %d", ErrRaggedColumns, c.Name, c.Len(), cols[0].Name, cols[0].Len())
		}
	}
	return &Table{Columns: cols}, nil
}

// RowCount returns the number of rows; zero for a table without columns.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// MissingCounts maps every column name to its null count.
func (t *Table) MissingCounts() map[string]int {
	out := make(map[string]int, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = c.NullCount()
	}
	return out
}

// DuplicateRows counts rows that repeat an earlier row exactly. The first
// occurrence of each row is not counted.
func (t *Table) DuplicateRows() int {
	rows := t.RowCount()
	seen := make(map[string]struct{}, rows)
	dups := 0
	var b strings.Builder
	for r := 0; r < rows; r++ {
		b.Reset()
		for _, c := range t.Columns {
			writeKey(&b, c.Values[r])
			b.WriteByte(0x1f)
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

func writeKey(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("n:")
	case bool:
		b.WriteString("b:")
		b.WriteString(cast.ToString(x))
	case int64:
		b.WriteString("f:")
		b.WriteString(cast.ToString(float64(x)))
	case float64:
		b.WriteString("f:")
		b.WriteString(cast.ToString(x))
	case time.Time:
		b.WriteString("t:")
		b.WriteString(cast.ToString(x.UnixNano()))
	default:
		b.WriteString("s:")
		b.WriteString(cast.ToString(x))
	}
}
