package merge

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const workbookSheet = "Merged"

// writeWorkbook writes the merged table as an Excel workbook with one
// sheet, mirroring the CSV layout. Undefined cells stay blank.
func writeWorkbook(path string, table *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", workbookSheet)

	sw, err := f.NewStreamWriter(workbookSheet)
	if err != nil {
		return fmt.Errorf("failed to create workbook stream writer: %w", err)
	}

	header := make([]interface{}, 0, len(table.Tickers)+1)
	header = append(header, "Date")
	for _, ticker := range table.Tickers {
		header = append(header, ticker)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write workbook header: %w", err)
	}

	for i, date := range table.Dates {
		row := make([]interface{}, 0, len(table.Tickers)+1)
		row = append(row, date)
		for _, ticker := range table.Tickers {
			if v, ok := table.Cell(date, ticker); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute workbook cell: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write workbook row %s: %w", date, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush workbook: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	return nil
}
