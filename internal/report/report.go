package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Houeta/crm-dispatch-bot/internal/models"
	"github.com/xuri/excelize/v2"
)

// ErrNoRecords is returned when the export window holds no records.
var ErrNoRecords = errors.New("failed to generate export, 0 records were provided")

const (
	sheetName = "Звернення"
	// Sheet columns A..E.
	columnCount = 5
	maxColWidth = 50
)

// Generator holds the state for the Excel export generation process.
type Generator struct {
	file *excelize.File
}

// NewGenerator creates a new export generator.
func NewGenerator() *Generator {
	return &Generator{
		file: excelize.NewFile(),
	}
}

// GenerateExcelExport renders the department's records into a single-sheet
// Excel workbook: a styled header row followed by one row per record, newest
// first, with column widths fitted to the content. Returns ErrNoRecords for
// an empty window instead of producing an empty workbook.
func GenerateExcelExport(records []models.RecordDetails) (*bytes.Buffer, error) {
	var err error

	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	gen := NewGenerator()
	defer gen.file.Close()

	if err = gen.addRecordSheet(records); err != nil {
		return nil, fmt.Errorf("failed to build export sheet: %w", err)
	}

	gen.file.SetActiveSheet(0)

	// delete default sheet
	if sheetIndex, _ := gen.file.GetSheetIndex("Sheet1"); sheetIndex != -1 {
		if err = gen.file.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("failed to delete default sheet 'Sheet1': %w", err)
		}
	}

	buffer, err := gen.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write data from saved file: %w", err)
	}

	return buffer, nil
}

func (g *Generator) addRecordSheet(records []models.RecordDetails) error {
	var err error

	if _, err = g.file.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheetName, err)
	}

	if err = g.setupSheet(len(records)); err != nil {
		return fmt.Errorf("failed to setup sheet %q: %w", sheetName, err)
	}

	widths := make([]int, columnCount)
	headerIndex := 2
	for i, rec := range records {
		row := recordRow(rec)
		cell, _ := excelize.CoordinatesToCellName(1, i+headerIndex) // first row is the header
		if err = g.file.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to add row %d: %w", i+headerIndex, err)
		}
		for col, value := range row {
			if text, ok := value.(string); ok && len(text) > widths[col] {
				widths[col] = len(text)
			}
		}
	}

	// Fit columns to content, capped so one long comment does not blow the
	// layout up.
	for col, width := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		adjusted := float64(width + 2)
		if adjusted > maxColWidth {
			adjusted = maxColWidth
		}
		if err = g.file.SetColWidth(sheetName, name, name, adjusted); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	return nil
}

func (g *Generator) setupSheet(recordCount int) error {
	var err error

	headerStyle, err := g.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create new style: %w", err)
	}

	rowHeight := 20
	headers := []string{"Дата/час", "Співробітник", "Категорія", "Телефон клієнта", "Коментар"}
	if err = g.file.SetRowHeight(sheetName, 1, float64(rowHeight)); err != nil {
		return fmt.Errorf("failed to set row height for headers: %w", err)
	}
	if err = g.file.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to set sheet row for headers: %w", err)
	}
	if err = g.file.SetCellStyle(sheetName, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to set cell style for headers: %w", err)
	}

	if err = g.file.AddTable(sheetName, &excelize.Table{
		Range:     fmt.Sprintf("A1:E%d", recordCount+1),
		Name:      "table_records",
		StyleName: "TableStyleMedium9",
	}); err != nil {
		return fmt.Errorf("failed to add table: %w", err)
	}

	return nil
}

// recordRow renders one record. Orphaned references degrade to an em dash
// for the employee and the raw stored code for the category.
func recordRow(rec models.RecordDetails) []interface{} {
	employee := "—"
	if rec.EmployeeName.Valid {
		employee = rec.EmployeeName.String
	}

	category := rec.CategoryCode
	if rec.CategoryName.Valid {
		category = fmt.Sprintf("%s (%s)", rec.CategoryName.String, rec.CategoryCode)
	}

	return []interface{}{
		rec.CreatedAt.Format("2006-01-02 15:04:05"),
		employee,
		category,
		rec.Phone,
		rec.Comment,
	}
}
