package qualify

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

// WriteReport writes the qualification outcome to an xlsx file: one row per
// item with its verdict, clickbait first.
func WriteReport(path string, out Outcome) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Qualification"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"YouTube ID", "Title", "Clickbait"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	items := make([]Item, len(out.Items))
	copy(items, out.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return out.Clickbait[items[i].YouTubeID] && !out.Clickbait[items[j].YouTubeID]
	})

	for row, it := range items {
		values := []interface{}{it.YouTubeID, it.Title, out.Clickbait[it.YouTubeID]}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}
