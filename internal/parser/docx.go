package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tablescope/internal/table"
)

var errNoTable = errors.New("no table found in document")

type docxDecoder struct{}

func (docxDecoder) Extensions() []string { return []string{".docx"} }

// Decode reads the first table of word/document.xml; its first row is the header.
func (docxDecoder) Decode(data []byte, opt Options) (*table.Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	doc := readZipFile(zr, "word/document.xml")
	if len(doc) == 0 {
		return nil, errors.New("document.xml not found in DOCX")
	}
	rows, err := firstWordTable(doc)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNoTable
	}
	return fromRecords(rows[0], rows[1:], opt)
}

// firstWordTable collects the cell text of the first w:tbl. Nested tables
// are flattened into their enclosing cell.
func firstWordTable(doc []byte) ([][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	var (
		rows  [][]string
		row   []string
		cell  strings.Builder
		depth int
		inT   bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if depth > 0 {
				return nil, fmt.Errorf("parse document.xml: %w", err)
			}
			return rows, nil
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "tbl":
				depth++
			case "tr":
				if depth == 1 {
					row = nil
				}
			case "tc":
				if depth == 1 {
					cell.Reset()
				}
			case "p":
				if depth > 0 && cell.Len() > 0 {
					cell.WriteByte(' ')
				}
			case "t":
				inT = depth > 0
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "tbl":
				depth--
				if depth == 0 {
					return rows, nil
				}
			case "tr":
				if depth == 1 {
					rows = append(rows, row)
				}
			case "tc":
				if depth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "t":
				inT = false
			}
		case xml.CharData:
			if inT {
				cell.Write(se)
			}
		}
	}
}
