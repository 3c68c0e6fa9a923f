package table

import "testing"

func TestCellInt(t *testing.T) {
	tests := []struct {
		cell    Cell
		want    int
		wantErr bool
	}{
		{Number(42), 42, false},
		{Number(1.5), 0, true},
		{Text("7"), 7, false},
		{Text("seven"), 0, true},
		{Bool(true), 0, true},
		{Empty(), 0, true},
	}
	for _, tt := range tests {
		got, err := tt.cell.Int()
		if (err != nil) != tt.wantErr {
			t.Errorf("%v.Int() err = %v, wantErr %v", tt.cell, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%v.Int() = %d, want %d", tt.cell, got, tt.want)
		}
	}
}

func TestCellBool(t *testing.T) {
	tests := []struct {
		cell    Cell
		want    bool
		wantErr bool
	}{
		{Bool(true), true, false},
		{Text("false"), false, false},
		{Text("TRUE"), true, false},
		{Text("nope"), false, true},
		{Number(1), false, true},
	}
	for _, tt := range tests {
		got, err := tt.cell.Bool()
		if (err != nil) != tt.wantErr {
			t.Errorf("%v.Bool() err = %v, wantErr %v", tt.cell, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%v.Bool() = %v, want %v", tt.cell, got, tt.want)
		}
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		cell Cell
		want string
	}{
		{Number(3), "3"},
		{Number(2.25), "2.25"},
		{Text("x"), "x"},
		{Bool(false), "false"},
		{Empty(), ""},
	}
	for _, tt := range tests {
		if got := tt.cell.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSheetCellOutOfRange(t *testing.T) {
	s := &Sheet{Rows: [][]Cell{{Text("a")}}}
	if got := s.Cell(0, 0); got.String() != "a" {
		t.Errorf("Cell(0,0) = %q", got)
	}
	if got := s.Cell(0, 5); got.Kind() != KindEmpty {
		t.Errorf("Cell(0,5) kind = %s, want empty", got.Kind())
	}
	if got := s.Cell(3, 0); got.Kind() != KindEmpty {
		t.Errorf("Cell(3,0) kind = %s, want empty", got.Kind())
	}
}
