package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tablescope/internal/table"
)

var errNoHeader = errors.New("no header row")

// naTokens are read as missing values.
var naTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "-nan": true, "null": true,
	"none": true, "#n/a": true, "<na>": true, "nil": true,
}

func isNA(s string) bool {
	return naTokens[strings.ToLower(strings.TrimSpace(s))]
}

// fromRecords builds a table from a header row and string records, inferring
// each column as integer, float, boolean or text in that order of preference.
func fromRecords(header []string, records [][]string, opt Options) (*table.Table, error) {
	if len(header) == 0 {
		return nil, errNoHeader
	}
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		records = records[:opt.MaxRows]
	}
	names := uniqueNames(header)
	cols := make([]*table.Column, len(names))
	for j, name := range names {
		raw := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = rec[j]
			}
		}
		cols[j] = table.NewColumn(name, inferColumn(raw, opt))
	}
	return table.New(cols...)
}

// uniqueNames trims headers, names blanks by position and suffixes repeats.
func uniqueNames(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

func inferColumn(raw []string, opt Options) []any {
	if vals, ok := inferAll(raw, parseInt); ok {
		return vals
	}
	if vals, ok := inferAll(raw, func(s string) (any, bool) { return parseFloat(s, opt) }); ok {
		return vals
	}
	if vals, ok := inferAll(raw, parseBool); ok {
		return vals
	}
	out := make([]any, len(raw))
	for i, s := range raw {
		if !isNA(s) {
			out[i] = s
		}
	}
	return out
}

// inferAll converts every non-missing value with conv, or reports false.
// A column of only missing values is not claimed by any numeric type.
func inferAll(raw []string, conv func(string) (any, bool)) ([]any, bool) {
	out := make([]any, len(raw))
	seen := false
	for i, s := range raw {
		if isNA(s) {
			continue
		}
		v, ok := conv(strings.TrimSpace(s))
		if !ok {
			return nil, false
		}
		out[i] = v
		seen = true
	}
	return out, seen
}

func parseInt(s string) (any, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

// parseFloat reads plain decimals, or locale-formatted numbers when a
// decimal separator is configured.
func parseFloat(s string, opt Options) (any, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if dec := opt.DecimalSeparator; dec != 0 && dec != '.' {
		thou := opt.ThousandsSeparator
		if thou == 0 {
			for _, sep := range []rune{',', '.', ' '} {
				if sep != dec {
					raw = strings.ReplaceAll(raw, string(sep), "")
				}
			}
		} else if thou != dec {
			raw = strings.ReplaceAll(raw, string(thou), "")
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}
