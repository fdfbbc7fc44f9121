package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/itzana/itzanago/internal/storage"
)

// XLSXLoader reads the first sheet of a workbook into a storage.Table.
// The first row is the header.
type XLSXLoader struct{}

func NewXLSXLoader() *XLSXLoader {
	return &XLSXLoader{}
}

func (l *XLSXLoader) Load(ctx context.Context, path, table string) (storage.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return storage.Table{}, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return storage.Table{}, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return storage.Table{}, fmt.Errorf("read sheet %s of %s: %w", sheet, path, err)
	}
	if err := ctx.Err(); err != nil {
		return storage.Table{}, err
	}
	if len(rows) == 0 {
		return storage.Table{}, fmt.Errorf("sheet %s of %s is empty", sheet, path)
	}

	return BuildTable(table, rows[0], rows[1:]), nil
}

// BuildTable turns raw header and cell text into a typed table. Empty rows
// are dropped, empty cells become NULL, and a column is REAL only when all
// of its non-empty cells are numeric.
func BuildTable(name string, header []string, body [][]string) storage.Table {
	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}

	cols := make([]storage.Column, width)
	names := ColumnNames(header, width)
	numeric := make([]bool, width)
	seen := make([]bool, width)
	for i := range cols {
		cols[i].Name = names[i]
		numeric[i] = true
	}

	var kept [][]string
	for _, row := range body {
		if isBlank(row) {
			continue
		}
		kept = append(kept, row)
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			seen[i] = true
			if _, err := decimal.NewFromString(cell); err != nil {
				numeric[i] = false
			}
		}
	}

	for i := range cols {
		cols[i].Type = storage.TypeText
		if seen[i] && numeric[i] {
			cols[i].Type = storage.TypeReal
		}
	}

	out := make([][]any, 0, len(kept))
	for _, row := range kept {
		vals := make([]any, width)
		for i := 0; i < width; i++ {
			if i >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			if cols[i].Type == storage.TypeReal {
				d, _ := decimal.NewFromString(cell)
				vals[i] = d.InexactFloat64()
				continue
			}
			vals[i] = cell
		}
		out = append(out, vals)
	}

	return storage.Table{Name: name, Columns: cols, Rows: out}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ColumnNames normalises spreadsheet headers into unique snake_case
// identifiers. Missing headers become col_N (1-based).
func ColumnNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]int)
	for i := 0; i < width; i++ {
		raw := ""
		if i < len(header) {
			raw = header[i]
		}
		name := snakeCase(raw)
		if name == "" {
			name = "col_" + strconv.Itoa(i+1)
		}
		if used[name] > 0 {
			// an earlier header may already own name_N
			base := name
			for n := used[base] + 1; ; n++ {
				candidate := base + "_" + strconv.Itoa(n)
				if used[candidate] == 0 {
					used[base] = n
					name = candidate
					break
				}
			}
		}
		used[name]++
		names[i] = name
	}
	return names
}

func snakeCase(s string) string {
	folded, _, err := transform.String(accentFolder, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name != "" && unicode.IsDigit(rune(name[0])) {
		name = "c_" + name
	}
	return name
}
