// Package excel adapts the sheet ports to a local .xlsx workbook, for
// rebuilding the summary in an offline export of the spreadsheet.
package excel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"tally/internal/grid"
	"tally/internal/sheets"
)

type Workbook struct {
	path string
}

var (
	_ sheets.GridLoader   = (*Workbook)(nil)
	_ sheets.ReportWriter = (*Workbook)(nil)
)

// Open points the adapter at a workbook file. The file is opened per
// operation; runs are infrequent and the workbook may be replaced between
// them.
func Open(path string) *Workbook {
	return &Workbook{path: path}
}

func (w *Workbook) LoadGrid(ctx context.Context, sheetName string) (grid.Grid, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()

	title, ok := sheets.MatchSheetName(f.GetSheetList(), sheetName)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", sheets.ErrSheetNotFound, sheetName, w.path)
	}

	rows, err := f.GetRows(title)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", title, err)
	}
	g := make(grid.Grid, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		g[i] = cells
	}
	return g, nil
}

func (w *Workbook) ReplaceReport(ctx context.Context, sheetName string, startRow int, header []string, rows [][]any, clear sheets.ClearRegion) error {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()

	title, ok := sheets.MatchSheetName(f.GetSheetList(), sheetName)
	if !ok {
		return fmt.Errorf("%w: %q in %s", sheets.ErrSheetNotFound, sheetName, w.path)
	}

	for r := startRow; r < startRow+clear.Rows; r++ {
		for c := 1; c <= clear.Cols; c++ {
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return fmt.Errorf("clear coordinates (%d,%d): %w", c, r, err)
			}
			if err := f.SetCellValue(title, cell, nil); err != nil {
				return fmt.Errorf("clear cell %s: %w", cell, err)
			}
		}
	}

	headerVals := make([]any, len(header))
	for i, h := range header {
		headerVals[i] = h
	}
	anchor, _ := excelize.CoordinatesToCellName(1, startRow)
	if err := f.SetSheetRow(title, anchor, &headerVals); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.styleHeader(f, title, startRow, len(header)); err != nil {
		slog.WarnContext(ctx, "Header styling failed, keeping unstyled header",
			"sheet", title, "error", err)
	}

	for i, vals := range rows {
		anchor, _ := excelize.CoordinatesToCellName(1, startRow+1+i)
		row := vals
		if err := f.SetSheetRow(title, anchor, &row); err != nil {
			return fmt.Errorf("write row %d: %w", startRow+1+i, err)
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (w *Workbook) styleHeader(f *excelize.File, title string, row, cols int) error {
	styleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E8F5E9"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(cols, row)
	return f.SetCellStyle(title, from, to, styleID)
}
