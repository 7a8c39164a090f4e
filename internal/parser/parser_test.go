package parser

import (
	"archive/zip"
	"bytes"
	"database/sql"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tablescope/internal/table"
)

func column(t *testing.T, tbl *table.Table, name string) *table.Column {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %q missing from %v", name, tbl.Names())
	return c
}

func TestDecodeCSVInfersTypes(t *testing.T) {
	data := "id,score,active,city,note\n" +
		"1,9.5,true,Paris,\n" +
		"2,NA,FALSE,Lyon,n/a\n" +
		"3,7,True,Nice,ok\n"
	tbl, err := Decode("people.csv", []byte(data), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, []string{"id", "score", "active", "city", "note"}, tbl.Names())

	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, column(t, tbl, "id").Values)
	assert.Equal(t, []any{9.5, nil, 7.0}, column(t, tbl, "score").Values)
	assert.Equal(t, []any{true, false, true}, column(t, tbl, "active").Values)
	assert.Equal(t, []any{"Paris", "Lyon", "Nice"}, column(t, tbl, "city").Values)
	assert.Equal(t, []any{nil, nil, "ok"}, column(t, tbl, "note").Values)
}

func TestDecodeCSVEdgeCases(t *testing.T) {
	tbl, err := Decode("a.csv", []byte("zip,blank\n02134,\n10001,\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2134), int64(10001)}, column(t, tbl, "zip").Values)
	assert.Equal(t, table.KindEmpty, column(t, tbl, "blank").Kind())

	tbl, err = Decode("a.csv", []byte("x,,x\n1,2,3\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "Unnamed: 1", "x.1"}, tbl.Names())

	tbl, err = Decode("a.csv", []byte("a,b\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.RowCount())
	assert.Len(t, tbl.Columns, 2)

	tbl, err = Decode("a.csv", []byte("n\n1\n2\n3\n4\n"), Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.RowCount())

	_, err = Decode("empty.csv", nil, Options{})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ".csv", fe.Ext)
	assert.ErrorIs(t, err, errNoHeader)
}

func TestDecodeTXTSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		delim rune
	}{
		{"semicolon", "a;b;c\n1;2;3\n", ';'},
		{"tab", "a\tb\n1\t2\n", '\t'},
		{"pipe", "a|b\n1|2\n", '|'},
		{"comma", "a,b\n1,2\n", ','},
		{"single column", "a\n1\n", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.delim, sniffDelimiter([]byte(tt.data)))
		})
	}

	tbl, err := Decode("data.txt", []byte("a;b\n1;x\n2;y\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Names())
}

func TestDecodeLocaleNumbers(t *testing.T) {
	data := "Score;LocaleNumber\n10,0;1.000,0\n9,5;0.900,5\n"
	tbl, err := Decode("scores.csv", []byte(data), Options{Delimiter: ';', DecimalSeparator: ',', ThousandsSeparator: '.'})
	require.NoError(t, err)
	assert.Equal(t, []any{10.0, 9.5}, column(t, tbl, "Score").Values)
	assert.Equal(t, []any{1000.0, 900.5}, column(t, tbl, "LocaleNumber").Values)

	tbl, err = Decode("scores.csv", []byte(data), Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []any{"10,0", "9,5"}, column(t, tbl, "Score").Values)
}

func TestDecodeJSON(t *testing.T) {
	records := `[{"b": 1, "a": "x"}, {"a": "y", "b": 2.5, "c": true}, {"b": null, "a": {"k": 1}}]`
	tbl, err := Decode("r.json", []byte(records), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, tbl.Names())
	assert.Equal(t, []any{int64(1), 2.5, nil}, column(t, tbl, "b").Values)
	assert.Equal(t, []any{"x", "y", `{"k":1}`}, column(t, tbl, "a").Values)
	assert.Equal(t, []any{nil, true, nil}, column(t, tbl, "c").Values)

	columns := `{"z": [3, 2, 1], "m": ["a", "b", null]}`
	tbl, err = Decode("c.json", []byte(columns), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "m"}, tbl.Names())
	assert.Equal(t, []any{"a", "b", nil}, column(t, tbl, "m").Values)

	_, err = Decode("bad.json", []byte(`{"a": [1], "b": [1, 2]}`), Options{})
	require.ErrorIs(t, err, table.ErrRaggedColumns)

	_, err = Decode("bad.json", []byte(`42`), Options{})
	require.ErrorIs(t, err, errJSONShape)
}

func writeFixture(t *testing.T) []byte {
	t.Helper()
	raw := strings.ReplaceAll(strings.TrimSpace(xlsxFixtureBase64), "\n", "")
	data, err := base64.StdEncoding.DecodeString(raw)
	require.NoError(t, err)
	return data
}

func TestDecodeXLSXSheetSelection(t *testing.T) {
	data := writeFixture(t)
	opt := Options{Sheet: "Data", DecimalSeparator: ',', ThousandsSeparator: '.'}

	byName, err := Decode("analysis_dataset.xlsx", data, opt)
	require.NoError(t, err)
	assert.Equal(t, 10, byName.RowCount())
	assert.Equal(t, []string{"Group", "Concentration (g/L)", "Temp (°F)", "Score", "LocaleNumber", "Category", "Note"}, byName.Names())
	assert.Equal(t, int64(70), column(t, byName, "Temp (°F)").Values[0])
	assert.Equal(t, 0.5, column(t, byName, "Concentration (g/L)").Values[0])
	assert.Equal(t, 5000.0, column(t, byName, "LocaleNumber").Values[8])
	assert.Equal(t, "alpha", column(t, byName, "Category").Values[0])

	opt.Sheet = ""
	opt.SheetIndex = 2
	byIndex, err := Decode("analysis_dataset.xlsx", data, opt)
	require.NoError(t, err)
	assert.Equal(t, byName.Names(), byIndex.Names())
	assert.Equal(t, byName.RowCount(), byIndex.RowCount())

	first, err := Decode("analysis_dataset.xlsx", data, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"placeholder"}, first.Names())
	assert.Equal(t, 0, first.RowCount())

	_, err = Decode("analysis_dataset.xlsx", data, Options{Sheet: "Missing"})
	require.ErrorIs(t, err, ErrSheetNotFound)
	assert.Contains(t, err.Error(), "Ignore, Data")
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
		{"/xl/styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeRelPath(tt.input), tt.input)
	}
	assert.Equal(t, 0, colIndexFromRef("A1"))
	assert.Equal(t, 27, colIndexFromRef("AB12"))
}

func TestDecodeMarkdownTable(t *testing.T) {
	md := "# Sales\n\nSome intro | not a table\n\n" +
		"| region | units | note |\n" +
		"|:-------|------:|:----:|\n" +
		"| north | 10 | a \\| b |\n" +
		"| south | 12 | |\n" +
		"\nTrailing text\n"
	tbl, err := Decode("sales.md", []byte(md), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "units", "note"}, tbl.Names())
	assert.Equal(t, []any{int64(10), int64(12)}, column(t, tbl, "units").Values)
	assert.Equal(t, []any{"a | b", nil}, column(t, tbl, "note").Values)

	_, err = Decode("plain.md", []byte("# nothing\n\ntext\n"), Options{})
	require.ErrorIs(t, err, errNoTable)
}

func docxWithBody(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func wordRow(cells ...string) string {
	var b strings.Builder
	b.WriteString("<w:tr>")
	for _, c := range cells {
		b.WriteString("<w:tc><w:p><w:r><w:t>" + c + "</w:t></w:r></w:p></w:tc>")
	}
	b.WriteString("</w:tr>")
	return b.String()
}

func TestDecodeDOCXFirstTable(t *testing.T) {
	body := `<w:p><w:r><w:t>Quarterly numbers</w:t></w:r></w:p>` +
		"<w:tbl>" + wordRow("product", "price") + wordRow("tea", "3.5") + wordRow("coffee", "4") + "</w:tbl>" +
		"<w:tbl>" + wordRow("other") + "</w:tbl>"
	tbl, err := Decode("report.docx", docxWithBody(t, body), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "price"}, tbl.Names())
	assert.Equal(t, []any{3.5, 4.0}, column(t, tbl, "price").Values)

	_, err = Decode("report.docx", docxWithBody(t, `<w:p><w:r><w:t>no tables</w:t></w:r></w:p>`), Options{})
	require.ErrorIs(t, err, errNoTable)

	_, err = Decode("report.docx", []byte("not a zip"), Options{})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestDecodeSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE orders (id INTEGER, item TEXT, price REAL);
		INSERT INTO orders VALUES (1, 'pen', 1.5), (2, 'ink', NULL);
		CREATE TABLE audit (note TEXT);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	tbl, err := Decode("shop.db", data, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "item", "price"}, tbl.Names())
	assert.Equal(t, []any{int64(1), int64(2)}, column(t, tbl, "id").Values)
	assert.Equal(t, []any{1.5, nil}, column(t, tbl, "price").Values)

	tbl, err = Decode("shop.sqlite", data, Options{Table: "audit"})
	require.NoError(t, err)
	assert.Equal(t, []string{"note"}, tbl.Names())
	assert.Equal(t, 0, tbl.RowCount())
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode("slides.pptx", []byte("x"), Options{})
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), ".csv")
	assert.False(t, IsSupported("a.pptx"))
	assert.True(t, IsSupported("A.CSV"))

	formats := SupportedFormats()
	for _, ext := range []string{".csv", ".tsv", ".txt", ".json", ".xlsx", ".md", ".docx", ".db"} {
		assert.Contains(t, formats, ext)
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.tsv")
	require.NoError(t, os.WriteFile(path, []byte("a\tb\n1\tx\n"), 0o644))
	tbl, err := DecodeFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Names())

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupported))
}
