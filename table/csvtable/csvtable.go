// Package csvtable implements table.Codec on comma-separated files. CSV has
// no cell types, so every non-empty cell reads back as text; table.Cell's
// accessors convert numeric and boolean text on demand.
package csvtable

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xraph/subledger/table"
)

// compile-time interface check
var _ table.Codec = (*Codec)(nil)

// Codec reads and writes .csv files.
type Codec struct{}

// New returns a CSV codec.
func New() *Codec { return &Codec{} }

// Write saves sheet to path. The sheet name is not stored.
func (c *Codec) Write(ctx context.Context, path string, sheet *table.Sheet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvtable: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(sheet.Header); err != nil {
		return fmt.Errorf("csvtable: write header: %w", err)
	}
	for _, row := range sheet.Rows {
		rec := make([]string, len(row))
		for i, cell := range row {
			rec[i] = cell.String()
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("csvtable: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvtable: flush %s: %w", path, err)
	}
	return f.Close()
}

// Read loads path. The sheet is named after the file.
func (c *Codec) Read(ctx context.Context, path string) (*table.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvtable: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	out := &table.Sheet{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvtable: read header: %w", err)
	}
	out.Header = header

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csvtable: %w", err)
		}
		row := make([]table.Cell, len(rec))
		for i, v := range rec {
			if v == "" {
				row[i] = table.Empty()
				continue
			}
			row[i] = table.Text(v)
		}
		out.Rows = append(out.Rows, row)
	}
}
