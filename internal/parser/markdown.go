package parser

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/KaramelBytes/tablescope/internal/table"
)

type markdownDecoder struct{}

func (markdownDecoder) Extensions() []string { return []string{".md", ".markdown"} }

// Decode reads the first pipe table: a header row followed by a delimiter
// row such as |---|:--:|.
func (markdownDecoder) Decode(data []byte, opt Options) (*table.Table, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var (
		prev    []string
		header  []string
		records [][]string
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if header != nil {
			if !strings.Contains(line, "|") {
				break
			}
			records = append(records, pipeCells(line))
			continue
		}
		if !strings.Contains(line, "|") {
			prev = nil
			continue
		}
		cells := pipeCells(line)
		if prev != nil && isDelimiterRow(cells) && len(cells) == len(prev) {
			header = prev
			continue
		}
		prev = cells
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, errNoTable
	}
	return fromRecords(header, records, opt)
}

func pipeCells(line string) []string {
	line = strings.TrimPrefix(strings.TrimSuffix(line, "|"), "|")
	var cells []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == '|' {
			cur.WriteByte('|')
			i++
			continue
		}
		if c == '|' {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(cells, strings.TrimSpace(cur.String()))
}

func isDelimiterRow(cells []string) bool {
	for _, c := range cells {
		c = strings.Trim(c, ":")
		if c == "" || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return len(cells) > 0
}
