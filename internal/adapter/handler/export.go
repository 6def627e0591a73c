package handler

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/rl1809/voice-inventory/internal/core/service"
)

const inventorySheet = "Inventory"

var exportHeaders = []string{
	"Product", "Display Name", "Category", "Quantity (kg)", "Price per kg",
	"Half kg", "Quarter kg", "Low Stock", "Description", "Updated At",
}

// WriteInventoryWorkbook renders inv as an xlsx workbook into w.
func WriteInventoryWorkbook(w io.Writer, inv service.Inventory) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(inventorySheet, cell, header)
		f.SetCellStyle(inventorySheet, cell, cell, headerStyle)
	}

	for rowIdx, item := range inv.Products {
		row := rowIdx + 2
		values := []any{
			item.Product,
			item.DisplayName,
			item.Category,
			item.QuantityKg,
			item.PricePerKg,
			item.Breakdown.HalfKg,
			item.Breakdown.QuarterKg,
			item.LowStock,
			item.Description,
			item.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(inventorySheet, cell, v)
		}
	}

	for i := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(inventorySheet, col, col, 16)
	}
	if index, err := f.GetSheetIndex(inventorySheet); err == nil {
		f.SetActiveSheet(index)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
