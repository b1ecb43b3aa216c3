package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/octobees/payadvice/internal/entity"
)

const (
	recordsSheet = "CRM Records"
	pagesSheet   = "Pages"
)

// RecordHeaders returns the padded column union followed by the bookkeeping
// columns.
func RecordHeaders(records []entity.Record) []string {
	headers, _ := entity.Table(records)
	return append(headers, entity.KeySourceInvoice, entity.KeyRecordIndex, entity.KeyScore)
}

// RecordRows returns one row per record aligned with RecordHeaders.
func RecordRows(records []entity.Record) [][]string {
	_, rows := entity.Table(records)
	for i, rec := range records {
		rows[i] = append(rows[i], rec.SourceInvoice, strconv.Itoa(rec.Index), strconv.Itoa(rec.Score))
	}
	return rows
}

// WriteRecordsXLSX writes a workbook with the CRM records and, when given,
// the extracted pages on a second sheet.
func WriteRecordsXLSX(w io.Writer, records []entity.Record, pages []entity.PageInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, recordsSheet, RecordHeaders(records), RecordRows(records)); err != nil {
		return err
	}

	if len(pages) > 0 {
		if _, err := f.NewSheet(pagesSheet); err != nil {
			return fmt.Errorf("create pages sheet: %w", err)
		}
		headers := []string{"page_number", "date", "amount", "payee", "payer", "reference", "invoice"}
		rows := make([][]string, 0, len(pages))
		for _, p := range pages {
			rows = append(rows, []string{strconv.Itoa(p.PageNumber), p.Date, p.Amount, p.Payee, p.Payer, p.Reference, p.Invoice})
		}
		if err := writeSheet(f, pagesSheet, headers, rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	if err := f.SetSheetRow(sheet, "A1", toCells(headers)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, toCells(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}

func toCells(values []string) *[]any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}

// WritePagesCSV writes the extracted pages as CSV with a header row.
func WritePagesCSV(w io.Writer, pages []entity.PageInfo) error {
	if pages == nil {
		pages = []entity.PageInfo{}
	}
	if err := gocsv.Marshal(&pages, w); err != nil {
		return fmt.Errorf("write pages csv: %w", err)
	}
	return nil
}

// WriteRecordsCSV writes the CRM records with the same columns as the
// workbook.
func WriteRecordsCSV(w io.Writer, records []entity.Record) error {
	out := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := out.Write(RecordHeaders(records)); err != nil {
		return fmt.Errorf("write records header: %w", err)
	}
	for _, row := range RecordRows(records) {
		if err := out.Write(row); err != nil {
			return fmt.Errorf("write records row: %w", err)
		}
	}
	out.Flush()
	return out.Error()
}
