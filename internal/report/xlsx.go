package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/contactkeval/option-iv/internal/engine"
)

const (
	recordsSheet = "iv"
	summarySheet = "summary"
)

// WriteXLSX writes a workbook with one row per record on the "iv" sheet
// and the run counts on the "summary" sheet. Numbers are stored as
// numbers; unsolved volatilities and greeks are blank cells.
func WriteXLSX(res *engine.Result, outdir string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return err
	}
	if err := setRow(f, recordsSheet, 1, toCells(columns)); err != nil {
		return err
	}
	for i, r := range res.Records {
		q := r.Quote
		row := []interface{}{
			q.ContractSymbol, string(q.Type), q.Strike,
			q.Expiration.Format("2006-01-02"), q.DataDate.Format("2006-01-02"),
			r.Spot, r.Rate, r.Expiry, r.MarketPrice, string(r.Method),
			nil, r.Iterations, r.Status, nil, nil, nil, r.Error,
		}
		if r.ImpliedVol != nil {
			row[10] = *r.ImpliedVol
		}
		if r.Greeks != nil {
			row[13], row[14], row[15] = r.Greeks.Delta, r.Greeks.Gamma, r.Greeks.Vega
		}
		if err := setRow(f, recordsSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(recordsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"run_id", res.RunID},
		{"underlying", res.Underlying},
		{"method", res.Method},
		{"solved", res.Solved},
		{"failed", res.Failed},
		{"invalid", res.Invalid},
		{"dropped", res.Dropped},
		{"filtered", res.Filtered},
		{"elapsed", res.Elapsed.String()},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	return f.SaveAs(XLSXPath(outdir, res.Underlying))
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
