// Package xlsx implements table.Codec on Excel workbooks via excelize.
// Only the first worksheet is read.
package xlsx

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xraph/subledger/table"
)

// DefaultSheetName is used when a Sheet has no name.
const DefaultSheetName = "Customers"

// compile-time interface check
var _ table.Codec = (*Codec)(nil)

// Codec reads and writes .xlsx files.
type Codec struct{}

// New returns an xlsx codec.
func New() *Codec { return &Codec{} }

// Write saves sheet as a single-sheet workbook at path, replacing any
// existing file.
func (c *Codec) Write(ctx context.Context, path string, sheet *table.Sheet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	name := sheet.Name
	if name == "" {
		name = DefaultSheetName
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("xlsx: name sheet: %w", err)
	}

	for col, h := range sheet.Header {
		if err := setCell(f, name, col, 0, h); err != nil {
			return err
		}
	}
	for r, row := range sheet.Rows {
		for col, cell := range row {
			v, ok := cellValue(cell)
			if !ok {
				continue
			}
			if err := setCell(f, name, col, r+1, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}
	return nil
}

// Read loads the first worksheet of the workbook at path.
func (c *Codec) Read(ctx context.Context, path string) (*table.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, table.ErrNoSheet
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: read %s: %w", name, err)
	}

	out := &table.Sheet{Name: name}
	if len(rows) == 0 {
		return out, nil
	}
	out.Header = rows[0]

	for r, raw := range rows[1:] {
		if isBlank(raw) {
			continue
		}
		row := make([]table.Cell, len(raw))
		for col, v := range raw {
			ref, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(name, ref)
			if err != nil {
				return nil, fmt.Errorf("xlsx: %s: %w", ref, err)
			}
			row[col] = toCell(typ, v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, ref, v); err != nil {
		return fmt.Errorf("xlsx: set %s: %w", ref, err)
	}
	return nil
}

func cellValue(c table.Cell) (any, bool) {
	switch c.Kind() {
	case table.KindNumber:
		if n, err := c.Int(); err == nil {
			return n, true
		}
		f, _ := strconv.ParseFloat(c.String(), 64) //nolint:errcheck // formatted from a float
		return f, true
	case table.KindBool:
		b, _ := c.Bool() //nolint:errcheck // kind checked
		return b, true
	case table.KindText:
		return c.String(), true
	default:
		return nil, false
	}
}

// toCell maps an excelize cell to a typed cell. Numbers are stored without
// a type attribute, so untyped cells that parse as numbers are numeric.
func toCell(typ excelize.CellType, v string) table.Cell {
	if v == "" {
		return table.Empty()
	}
	switch typ {
	case excelize.CellTypeBool:
		return table.Bool(v == "1" || strings.EqualFold(v, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return table.Number(n)
		}
		return table.Text(v)
	default:
		return table.Text(v)
	}
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
