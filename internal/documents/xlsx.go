package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX renders every sheet as a "--- Sheet: <name> ---" line followed
// by its rows with cells joined by tabs.
func extractXLSX(_ context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	var content []string
	for _, sheet := range f.GetSheetList() {
		content = append(content, fmt.Sprintf("--- Sheet: %s ---", sheet))
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			content = append(content, strings.Join(row, "\t"))
		}
	}
	return strings.Join(content, "\n"), nil
}
