package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const historySheet = "Sales History"

var historyHeader = []string{
	"Sale ID", "Product", "Qty", "Price At Sale", "Actual Received",
	"Discount %", "Commission", "Profit", "Note", "Sold At",
}

// WriteHistoryXLSX renders the history report as a spreadsheet: one row per
// sale followed by a totals row with grouped-digit formatting.
func WriteHistoryXLSX(w io.Writer, report HistoryReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	f.SetSheetName(f.GetSheetName(0), historySheet)

	for col, title := range historyHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(historySheet, cell, title); err != nil {
			return err
		}
	}

	for i, entry := range report.Entries {
		row := i + 2
		values := []interface{}{
			entry.SaleID,
			entry.ProductName,
			entry.Quantity,
			entry.PriceAtSale,
			entry.ActualReceived,
			entry.DiscountPercent,
			entry.Commission,
			entry.Profit,
			entry.Note,
			entry.SoldAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(historySheet, cell, value); err != nil {
				return err
			}
		}
	}

	printer := message.NewPrinter(language.English)
	totalsRow := len(report.Entries) + 3
	totals := [][2]interface{}{
		{"Total Qty", report.Summary.TotalQty},
		{"Total Revenue", printer.Sprintf("%.2f", report.Summary.TotalRevenue)},
		{"Total Profit", printer.Sprintf("%.2f", report.Summary.TotalProfit)},
		{"Total Commission", printer.Sprintf("%.2f", report.Summary.TotalCommission)},
		{"Total Discount", printer.Sprintf("%.2f", report.Summary.TotalDiscount)},
	}
	for i, pair := range totals {
		labelCell := fmt.Sprintf("A%d", totalsRow+i)
		valueCell := fmt.Sprintf("B%d", totalsRow+i)
		if err := f.SetCellValue(historySheet, labelCell, pair[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(historySheet, valueCell, pair[1]); err != nil {
			return err
		}
	}

	return f.Write(w)
}
