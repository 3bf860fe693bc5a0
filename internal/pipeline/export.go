package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"bggsync/internal"
)

// WriteMatchedCSV writes the upload table consumed by the marketplace.
func WriteMatchedCSV(rows []internal.MatchedRow, outputPath string) error {
	records := [][]string{{"gameid", "url", "price", "currency", "enabled", "show_from"}}
	for _, row := range rows {
		records = append(records, []string{
			row.GameID,
			row.URL,
			formatPrice(row.Price),
			row.Currency,
			strconv.Itoa(row.Enabled),
			strconv.Itoa(row.ShowFrom),
		})
	}
	return writeCSV(records, outputPath)
}

// WriteFailedCSV writes the diagnostics table of unreconciled products.
func WriteFailedCSV(rows []internal.FailedRow, outputPath string) error {
	records := [][]string{{"product_id", "handle", "barcode", "metafield", "price"}}
	for _, row := range rows {
		records = append(records, []string{
			row.ProductID,
			row.Handle,
			derefString(row.Barcode),
			derefString(row.ExternalID),
			formatPrice(row.Price),
		})
	}
	return writeCSV(records, outputPath)
}

func writeCSV(records [][]string, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ExportReportXLSX writes a single reconciliation workbook: the matched and
// failed tables on separate sheets, plus a mutation log sheet with the
// per-product outcomes (including ambiguous candidate sets).
func ExportReportXLSX(rec Reconciliation, outcomes []internal.MutationOutcome, outputPath string) error {
	f := excelize.NewFile()
	matchedSheet := f.GetSheetName(0)
	_ = f.SetSheetName(matchedSheet, "matched")

	setRow := func(sheet string, rowNo int, values []any) {
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNo)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	setRow("matched", 1, []any{"gameid", "url", "price", "currency", "enabled", "show_from"})
	for i, row := range rec.Matched {
		setRow("matched", i+2, []any{row.GameID, row.URL, row.Price, row.Currency, row.Enabled, row.ShowFrom})
	}

	_, _ = f.NewSheet("failed")
	setRow("failed", 1, []any{"product_id", "handle", "barcode", "metafield", "price"})
	for i, row := range rec.Failed {
		setRow("failed", i+2, []any{row.ProductID, row.Handle, derefString(row.Barcode), derefString(row.ExternalID), row.Price})
	}

	_, _ = f.NewSheet("mutations")
	setRow("mutations", 1, []any{"product_id", "action", "status", "objectid", "ambiguous_candidates", "error"})
	for i, outcome := range outcomes {
		setRow("mutations", i+2, []any{
			outcome.ProductID,
			string(outcome.Action),
			string(outcome.Status),
			derefString(outcome.ObjectID),
			strings.Join(outcome.Ambiguous, " "),
			derefString(outcome.Error),
		})
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
