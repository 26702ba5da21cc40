package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/contactkeval/option-iv/internal/engine"
)

// baseName turns an underlying into a file name prefix: "^SPX" -> "SPX".
func baseName(underlying string) string {
	return strings.ToUpper(strings.TrimPrefix(underlying, "^"))
}

// columns heads the CSV report and the XLSX records sheet.
var columns = []string{"contract", "type", "strike", "expiration", "data_date", "spot", "rate", "expiry_years", "market_price", "method", "implied_vol", "iterations", "status", "delta", "gamma", "vega", "error"}

// Write writes res in each of formats (json, csv, xlsx) under outdir.
func Write(res *engine.Result, outdir string, formats []string) error {
	for _, f := range formats {
		var err error
		switch f {
		case "json":
			err = WriteJSON(res, outdir)
		case "csv":
			err = WriteCSV(res, outdir)
		case "xlsx":
			err = WriteXLSX(res, outdir)
		default:
			err = fmt.Errorf("unknown report format %q", f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// JSONPath, CSVPath and XLSXPath name the report files of an underlying
// inside outdir.
func JSONPath(outdir, underlying string) string {
	return filepath.Join(outdir, baseName(underlying)+"_iv.json")
}

func CSVPath(outdir, underlying string) string {
	return filepath.Join(outdir, baseName(underlying)+"_iv.csv")
}

func XLSXPath(outdir, underlying string) string {
	return filepath.Join(outdir, baseName(underlying)+"_iv.xlsx")
}

// WriteJSON writes the whole result. Unsolved volatilities are null.
func WriteJSON(res *engine.Result, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(JSONPath(outdir, res.Underlying), b, 0644)
}

// WriteCSV writes one row per record. Unsolved volatilities and greeks are
// left empty.
func WriteCSV(res *engine.Result, outdir string) error {
	f, err := os.Create(CSVPath(outdir, res.Underlying))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, r := range res.Records {
		q := r.Quote
		iv, delta, gamma, vega := "", "", "", ""
		if r.ImpliedVol != nil {
			iv = fmt.Sprintf("%.6f", *r.ImpliedVol)
		}
		if r.Greeks != nil {
			delta = fmt.Sprintf("%.6f", r.Greeks.Delta)
			gamma = fmt.Sprintf("%.6f", r.Greeks.Gamma)
			vega = fmt.Sprintf("%.6f", r.Greeks.Vega)
		}
		row := []string{q.ContractSymbol, string(q.Type), fmt.Sprintf("%.2f", q.Strike), q.Expiration.Format("2006-01-02"), q.DataDate.Format("2006-01-02"), fmt.Sprintf("%.4f", r.Spot), fmt.Sprintf("%.4f", r.Rate), fmt.Sprintf("%.6f", r.Expiry), fmt.Sprintf("%.4f", r.MarketPrice), string(r.Method), iv, fmt.Sprintf("%d", r.Iterations), r.Status, delta, gamma, vega, r.Error}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
