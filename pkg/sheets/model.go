package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned by Open for locations no reader understands.
var ErrUnsupported = errors.New("unsupported tabular source")

// Row maps a column name to the cell's text. Missing cells are "".
type Row map[string]string

// Get returns the trimmed cell value for column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// RowSet is every data row of one sheet plus its header, in sheet order.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// Empty reports whether the set holds no data rows.
func (rs *RowSet) Empty() bool {
	return rs == nil || len(rs.Rows) == 0
}

// Len returns the number of data rows.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Reader yields the RowSet of a tabular source. It is called once per run.
type Reader interface {
	ReadRows(ctx context.Context) (*RowSet, error)
}

// fromGrid turns a raw grid (header first) into a RowSet. Trailing blank rows
// are dropped, interior ones are kept so positions match the sheet.
func fromGrid(grid [][]string) *RowSet {
	if len(grid) == 0 {
		return &RowSet{}
	}
	columns := uniqueHeaders(grid[0])

	last := len(grid) - 1
	for last > 0 && blank(grid[last]) {
		last--
	}

	rows := make([]Row, 0, last)
	for _, cells := range grid[1 : last+1] {
		row := make(Row, len(columns))
		for j, col := range columns {
			if j < len(cells) {
				row[col] = cells[j]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return &RowSet{Columns: columns, Rows: rows}
}

// uniqueHeaders labels blank headers "Unnamed: <i>" and suffixes repeats
// with ".1", ".2", ... so every column name is distinct.
func uniqueHeaders(header []string) []string {
	used := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("%s.%d", name, n)
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
