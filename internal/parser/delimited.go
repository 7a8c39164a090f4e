package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tablescope/internal/table"
)

// delimitedDecoder reads CSV-style text. A zero delim sniffs the separator.
type delimitedDecoder struct {
	ext   string
	delim rune
}

func (d delimitedDecoder) Extensions() []string { return []string{d.ext} }

func (d delimitedDecoder) Decode(data []byte, opt Options) (*table.Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = d.delim
	}
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, errNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(records)+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		records = append(records, rec)
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
	}
	return fromRecords(header, records, opt)
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate that splits the first lines into the
// most fields consistently. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for sc.Scan() && len(lines) < 10 {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	best, bestFields := ',', 1
	for _, c := range delimiterCandidates {
		n := -1
		for _, l := range lines {
			f := strings.Count(l, string(c)) + 1
			if n == -1 {
				n = f
			} else if f != n {
				n = 0
				break
			}
		}
		if n > bestFields {
			best, bestFields = c, n
		}
	}
	return best
}
