// Package table is the spreadsheet-style collaborator used for bulk import
// and export. A Sheet is a named grid with one header row and typed cells;
// a Codec moves a Sheet to and from a file.
package table

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoSheet is returned when a workbook contains no readable sheet.
var ErrNoSheet = errors.New("table: no sheet")

// Kind is the type of value a Cell holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "empty"
	}
}

// Cell is one typed value.
type Cell struct {
	kind Kind
	num  float64
	text string
	b    bool
}

// Number returns a numeric cell.
func Number(v float64) Cell { return Cell{kind: KindNumber, num: v} }

// Text returns a text cell.
func Text(v string) Cell { return Cell{kind: KindText, text: v} }

// Bool returns a boolean cell.
func Bool(v bool) Cell { return Cell{kind: KindBool, b: v} }

// Empty returns an empty cell.
func Empty() Cell { return Cell{} }

// Kind returns the cell's type.
func (c Cell) Kind() Kind { return c.kind }

// Int returns the cell as an integer. Numeric text is accepted since
// spreadsheets often store ids as strings.
func (c Cell) Int() (int, error) {
	switch c.kind {
	case KindNumber:
		if c.num != float64(int(c.num)) {
			return 0, fmt.Errorf("table: %v is not an integer", c.num)
		}
		return int(c.num), nil
	case KindText:
		n, err := strconv.Atoi(c.text)
		if err != nil {
			return 0, fmt.Errorf("table: %q is not an integer", c.text)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("table: %s cell is not an integer", c.kind)
	}
}

// Bool returns the cell as a boolean. Text "true"/"false" is accepted.
func (c Cell) Bool() (bool, error) {
	switch c.kind {
	case KindBool:
		return c.b, nil
	case KindText:
		b, err := strconv.ParseBool(c.text)
		if err != nil {
			return false, fmt.Errorf("table: %q is not a boolean", c.text)
		}
		return b, nil
	default:
		return false, fmt.Errorf("table: %s cell is not a boolean", c.kind)
	}
}

// String renders the cell as text.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindText:
		return c.text
	case KindBool:
		return strconv.FormatBool(c.b)
	default:
		return ""
	}
}

// Sheet is a named grid with a header row.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]Cell
}

// Cell returns the cell at row/col, or an empty cell when out of range.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Empty()
	}
	return s.Rows[row][col]
}

// Codec reads and writes sheets.
type Codec interface {
	Write(ctx context.Context, path string, sheet *Sheet) error
	Read(ctx context.Context, path string) (*Sheet, error)
}
