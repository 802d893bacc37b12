package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/facility-checklists/internal/application"
)

// SheetName is the worksheet holding the execution rows.
const SheetName = "Execuções"

var headers = []string{
	"Data", "Checklist", "Cliente", "Local", "Técnico",
	"Itens concluídos", "Fotos", "Observações",
}

// XLSXExporter writes execution reports as an Excel workbook.
type XLSXExporter struct {
	// Location formats timestamps; nil means time.Local.
	Location *time.Location
}

// Export writes rows, in order, to w.
func (e XLSXExporter) Export(w io.Writer, rows []application.ExecutionReport) error {
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(SheetName); err == nil {
		f.SetActiveSheet(index)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, headerStyle)
	}

	for i, row := range rows {
		values := []any{
			row.Execution.CompletedAt.In(loc).Format("02/01/2006 15:04"),
			row.ChecklistTitle,
			row.ClientName,
			row.LocationName,
			row.UserName,
			len(row.Execution.CompletedItems),
			photoList(row.Execution.Photos),
			row.Execution.Notes,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 18)
	_ = f.SetColWidth(SheetName, "B", "E", 24)
	_ = f.SetColWidth(SheetName, "F", "F", 16)
	_ = f.SetColWidth(SheetName, "G", "H", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func photoList(photos map[string]string) string {
	if len(photos) == 0 {
		return ""
	}
	paths := make([]string, 0, len(photos))
	for _, p := range photos {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return strings.Join(paths, "\n")
}
