package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mfromano/schedule-creator/internal/models"
)

// Writer mutates a copy of the input workbook in place. The original file
// is never written: the constructor copies it byte-for-byte and all writes
// target the copy, so macros and untouched formulas survive.
type Writer struct {
	f       *excelize.File
	outPath string
}

// NewWriter copies src to out (default: "<src>_output<ext>" alongside the
// source) and opens the copy for writing.
func NewWriter(src, out string) (*Writer, error) {
	if out == "" {
		ext := filepath.Ext(src)
		out = strings.TrimSuffix(src, ext) + "_output" + ext
	}
	if abs, err := filepath.Abs(out); err == nil {
		if srcAbs, err := filepath.Abs(src); err == nil && abs == srcAbs {
			return nil, fmt.Errorf("refusing to overwrite the input workbook %s", src)
		}
	}
	if err := copyFile(src, out); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		return nil, fmt.Errorf("open output workbook %s: %w", out, err)
	}
	return &Writer{f: f, outPath: out}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy workbook: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy workbook: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy workbook: %w", err)
	}
	return out.Close()
}

func (w *Writer) OutPath() string { return w.outPath }

func (w *Writer) Save() error { return w.f.Save() }

func (w *Writer) Close() error { return w.f.Close() }

// SetAcademicYear writes the target year into the Overview cell that
// governs all the workbook's date formulas.
func (w *Writer) SetAcademicYear(year int) error {
	axis := "B5"
	if cellStr(w.f, sheetOverview, axis) == "" && cellStr(w.f, sheetOverview, "B6") != "" {
		axis = "B6"
	}
	return w.f.SetCellValue(sheetOverview, axis, year)
}

// WriteBaseSchedule fills the Base Schedule grid (columns D-BC) with
// rotation codes.
func (w *Writer) WriteBaseSchedule(assignments map[string]map[int]string, rows map[string]int) error {
	return w.writeGrid(sheetBase, baseFirstDataCol, assignments, rows)
}

// WriteNightFloat fills the Night Float tab, overwriting its formula cells
// with literal values. Pair with ClearNightFloat to reset.
func (w *Writer) WriteNightFloat(assignments map[string]map[int]string, rows map[string]int) error {
	return w.writeGrid(sheetNightFloat, nfFirstDataCol, assignments, rows)
}

func (w *Writer) writeGrid(sheet string, firstCol int, assignments map[string]map[int]string, rows map[string]int) error {
	for name, weeks := range assignments {
		rowIdx, ok := rows[name]
		if !ok {
			return fmt.Errorf("no %s row for resident %q", sheet, name)
		}
		for week, code := range weeks {
			axis, err := excelize.CoordinatesToCellName(firstCol+week-1, rowIdx)
			if err != nil {
				return err
			}
			if err := w.f.SetCellValue(sheet, axis, code); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, axis, err)
			}
		}
	}
	return nil
}

// ClearBaseSchedule blanks the schedule grid for the given residents.
func (w *Writer) ClearBaseSchedule(rows map[string]int, weeks int) error {
	return w.clearGrid(sheetBase, baseFirstDataCol, rows, weeks)
}

// ClearNightFloat blanks the NF grid, restoring a "reset NF" state.
func (w *Writer) ClearNightFloat(rows map[string]int, weeks int) error {
	return w.clearGrid(sheetNightFloat, nfFirstDataCol, rows, weeks)
}

func (w *Writer) clearGrid(sheet string, firstCol int, rows map[string]int, weeks int) error {
	for _, rowIdx := range rows {
		for week := 1; week <= weeks; week++ {
			axis, err := excelize.CoordinatesToCellName(firstCol+week-1, rowIdx)
			if err != nil {
				return err
			}
			if err := w.f.SetCellValue(sheet, axis, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteGridAssignments flattens a built grid (base plus NF overlay) into
// the writer's input shape.
func WriteGridAssignments(grid *models.Grid, residents []*models.Resident) (base, nf map[string]map[int]string) {
	base = map[string]map[int]string{}
	nf = grid.NFAssignments()
	for _, r := range residents {
		for w := 1; w <= grid.Weeks; w++ {
			if code := grid.Base(r.Name, w); code != "" {
				if base[r.Name] == nil {
					base[r.Name] = map[int]string{}
				}
				base[r.Name][w] = code
			}
		}
	}
	return base, nf
}
