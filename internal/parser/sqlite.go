package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/KaramelBytes/tablescope/internal/source"
	"github.com/KaramelBytes/tablescope/internal/table"
)

type sqliteDecoder struct{}

func (sqliteDecoder) Extensions() []string { return []string{".sqlite", ".sqlite3", ".db"} }

// Decode spills the database to a temp file and reads Options.Table, or the
// first table when none is named.
func (sqliteDecoder) Decode(data []byte, opt Options) (*table.Table, error) {
	f, err := os.CreateTemp("", "tablescope-*.sqlite")
	if err != nil {
		return nil, fmt.Errorf("create temp database: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("write temp database: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	src, err := source.Open(ctx, "sqlite", "file:"+path+"?mode=ro", nil)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	t, _, err := src.ReadTable(ctx, opt.Table, opt.MaxRows)
	return t, err
}
