package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/walletview/internal/history"
)

// XLSXWriter implements Writer by saving an Excel workbook to a file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter that saves to path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write saves the summary workbook to the writer's path, replacing any existing file.
func (w *XLSXWriter) Write(_ context.Context, s history.Summary) error {
	f, err := buildWorkbook(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

// WriteXLSX streams the summary workbook to out.
func WriteXLSX(out io.Writer, s history.Summary) error {
	f, err := buildWorkbook(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func buildWorkbook(s history.Summary) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	header, data := buildHistoryRows(s)
	tables := []struct {
		name string
		rows [][]any
	}{
		{"PORTFOLIO", BuildRows(s)},
		{"ACCOUNTS", BuildAccountRows(s)},
		{"STAKING", BuildStakingRows(s)},
		{historySheet, [][]any{header, data}},
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", t.name, err)
		}

		if err := writeTable(f, t.name, t.rows, bold); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func writeTable(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}

	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
