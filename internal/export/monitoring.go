package export

import (
	"context"
	"fmt"

	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/walletview/internal/history"
)

const historySheet = "HISTORY"

// historyColumn describes one column in the HISTORY sheet.
type historyColumn struct {
	header string
	value  func(s history.Summary) any
}

// historyColumns defines the data columns (B onward) in order.
// Column A (Date) is prepended separately in buildHistoryRows.
var historyColumns = []historyColumn{
	{"Total Fiat", func(s history.Summary) any { return toFloat(s.TotalFiat) }},
	{"Total Fiat With Delegations", func(s history.Summary) any { return toFloat(s.TotalFiatWithDelegations) }},
	{"Delegations Fiat", func(s history.Summary) any { return toFloat(s.DelegationFiat) }},
	{"Accounts", func(s history.Summary) any { return s.AccountCount }},
	{"Assets", func(s history.Summary) any { return len(s.Assets) }},
	{"Top Asset", func(s history.Summary) any {
		if len(s.Assets) == 0 {
			return nil
		}
		return s.Assets[0].Symbol
	}},
	{"Top Asset Allocation %", func(s history.Summary) any {
		if len(s.Assets) == 0 {
			return nil
		}
		return s.Assets[0].Allocation
	}},
	{"Staking Accounts", func(s history.Summary) any { return len(s.Staking) }},
}

// buildHistoryRows builds the header row and a single data row for the HISTORY sheet.
func buildHistoryRows(s history.Summary) (header, data []any) {
	header = make([]any, 1+len(historyColumns))
	data = make([]any, 1+len(historyColumns))
	header[0] = "Date"
	data[0] = s.GeneratedAt.UTC().Format("02.01.2006")
	for i, col := range historyColumns {
		header[i+1] = col.header
		data[i+1] = col.value(s)
	}
	return header, data
}

// AppendHistory ensures the HISTORY sheet exists, writes the header row if the
// sheet is new or empty, then appends one data row for the summary.
func (w *SheetsWriter) AppendHistory(ctx context.Context, s history.Summary) error {
	meta, err := w.ensureSheets(ctx, historySheet)
	if err != nil {
		return fmt.Errorf("ensuring %s sheet: %w", historySheet, err)
	}

	header, data := buildHistoryRows(s)

	existing, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, historySheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", historySheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			historySheet+"!A1",
			&sheets.ValueRange{Values: [][]any{header}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", historySheet, err)
		}
		if err := w.freezeHeader(ctx, meta[historySheet]); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", historySheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		historySheet+"!A:A",
		&sheets.ValueRange{Values: [][]any{data}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", historySheet, err)
	}

	return nil
}

// freezeHeader freezes and bolds the first row of a sheet.
func (w *SheetsWriter) freezeHeader(ctx context.Context, sheetID int64) error {
	reqs := []*sheets.Request{
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
				},
				Fields: "userEnteredFormat.textFormat.bold",
			},
		},
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}
