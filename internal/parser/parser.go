// Package parser decodes uploaded files into tables.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tablescope/internal/table"
)

// ErrUnsupported indicates a file extension no decoder handles.
var ErrUnsupported = errors.New("unsupported file format")

// FormatError reports a file that matched a decoder but could not be read.
type FormatError struct {
	Ext string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("error reading %s file: %v", e.Ext, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Options tunes decoding. The zero value reads the first sheet or table
// with '.' decimals.
type Options struct {
	// Sheet selects a workbook sheet by name; SheetIndex by 1-based position.
	Sheet      string
	SheetIndex int
	// Table selects a table inside a SQLite database.
	Table string
	// Delimiter overrides sniffing for delimited text.
	Delimiter rune
	// DecimalSeparator and ThousandsSeparator enable locale number parsing,
	// e.g. ',' and '.' for "1.000,5".
	DecimalSeparator   rune
	ThousandsSeparator rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// Decoder turns the bytes of one file format into a table.
type Decoder interface {
	Extensions() []string
	Decode(data []byte, opt Options) (*table.Table, error)
}

var registry = map[string]Decoder{}

// Register adds a decoder for each of its extensions.
func Register(d Decoder) {
	for _, ext := range d.Extensions() {
		registry[strings.ToLower(ext)] = d
	}
}

func init() {
	Register(delimitedDecoder{ext: ".csv", delim: ','})
	Register(delimitedDecoder{ext: ".tsv", delim: '\t'})
	Register(delimitedDecoder{ext: ".txt"})
	Register(jsonDecoder{})
	Register(xlsxDecoder{})
	Register(markdownDecoder{})
	Register(docxDecoder{})
	Register(sqliteDecoder{})
}

// SupportedFormats lists registered extensions, sorted.
func SupportedFormats() []string {
	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// IsSupported reports whether filename has a registered extension.
func IsSupported(filename string) bool {
	_, ok := registry[ext(filename)]
	return ok
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Decode selects a decoder by the filename extension.
func Decode(filename string, data []byte, opt Options) (*table.Table, error) {
	e := ext(filename)
	d, ok := registry[e]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, e, strings.Join(SupportedFormats(), ", "))
	}
	t, err := d.Decode(data, opt)
	if err != nil {
		return nil, &FormatError{Ext: e, Err: err}
	}
	return t, nil
}

// DecodeFile reads path and decodes it.
func DecodeFile(path string, opt Options) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Decode(path, data, opt)
}
