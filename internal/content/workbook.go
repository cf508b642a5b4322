package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultWorkbookPattern names the per-class workbook; %02d is the class number.
const DefaultWorkbookPattern = "iQRM_Class_%02d.xlsx"

// Workbooks describes the spreadsheet that accompanies each class.
type Workbooks struct {
	dir     string
	pattern string
}

// NewWorkbooks creates a workbook reader rooted at dir.
func NewWorkbooks(dir, pattern string) *Workbooks {
	if pattern == "" {
		pattern = DefaultWorkbookPattern
	}
	return &Workbooks{dir: dir, pattern: pattern}
}

// Path returns the workbook location for a class number.
func (w *Workbooks) Path(classNumber int) string {
	return filepath.Join(w.dir, fmt.Sprintf(w.pattern, classNumber))
}

// Describe lists every sheet of the class workbook with its header columns.
// The text is meant for the language model prompt, so failures are reported
// inline instead of returned.
func (w *Workbooks) Describe(classNumber int) string {
	path := w.Path(classNumber)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "No Excel workbook found for this class.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Data from the workbook '%s' shows:\n", filepath.Base(path))

	sheets, err := readHeaders(path)
	for _, s := range sheets {
		fmt.Fprintf(&b, "- Sheet '%s' with columns: %s\n", s.name, strings.Join(s.columns, ", "))
	}
	if err != nil {
		fmt.Fprintf(&b, "Could not read Excel workbook: %v\n", err)
	}
	return b.String()
}

type sheetHeader struct {
	name    string
	columns []string
}

func readHeaders(path string) ([]sheetHeader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []sheetHeader
	for _, name := range f.GetSheetList() {
		cols, err := headerRow(f, name)
		if err != nil {
			return out, fmt.Errorf("sheet %q: %w", name, err)
		}
		out = append(out, sheetHeader{name: name, columns: cols})
	}
	return out, nil
}

func headerRow(f *excelize.File, sheet string) ([]string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Error()
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	for i, c := range cols {
		if strings.TrimSpace(c) == "" {
			cols[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return cols, nil
}
