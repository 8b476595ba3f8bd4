package sheets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayout is how date cells are rendered, whatever their number format.
const dateLayout = "2006-01-02 15:04:05"

// XLSXReader reads a workbook from disk with excelize.
type XLSXReader struct {
	path      string
	sheetName string
}

// NewXLSXReader reads sheetName from the workbook at path; an empty sheet
// name selects the first sheet.
func NewXLSXReader(path, sheetName string) *XLSXReader {
	return &XLSXReader{path: path, sheetName: sheetName}
}

func (r *XLSXReader) ReadRows(_ context.Context) (*RowSet, error) {
	if _, err := os.Stat(r.path); err != nil {
		return nil, fmt.Errorf("workbook %s: %w", r.path, err)
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", r.path, err)
	}
	defer f.Close()

	sheet := r.sheetName
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return &RowSet{}, nil
		}
		sheet = list[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("workbook %s has no sheet named %q", r.path, sheet)
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	normalizeDates(f, sheet, grid)
	return fromGrid(grid), nil
}

// normalizeDates rewrites data cells with a date or time number format from
// their display text (e.g. "1/1/24 10:00") to dateLayout.
func normalizeDates(f *excelize.File, sheet string, grid [][]string) {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	dateStyles := map[int]bool{}

	for i := 1; i < len(grid); i++ {
		for j, text := range grid[i] {
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				continue
			}
			styleID, err := f.GetCellStyle(sheet, cell)
			if err != nil || styleID == 0 {
				continue
			}
			isDate, seen := dateStyles[styleID]
			if !seen {
				isDate = dateStyle(f, styleID)
				dateStyles[styleID] = isDate
			}
			if !isDate {
				continue
			}
			raw, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
			if err != nil {
				continue
			}
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			grid[i][j] = t.Round(time.Second).Format(dateLayout)
		}
	}
}

func dateStyle(f *excelize.File, styleID int) bool {
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format code has date or time
// tokens outside quoted literals and [..] sections.
func isDateFormat(code string) bool {
	var b strings.Builder
	quoted, bracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		default:
			b.WriteRune(r)
		}
	}
	rest := b.String()
	return strings.ContainsAny(rest, "ydh") || strings.Contains(rest, "mmm")
}
