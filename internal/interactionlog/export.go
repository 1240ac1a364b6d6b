package interactionlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"doc-investigator/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	exportSheet = "Interactions"
)

var exportHeaders = []string{
	"id", "timestamp", "document_names", "prompt", "answer",
	"output_passed", "eval_reason", "model_name", "temperature", "top_p",
}

// Export writes every interaction in log to w in the given format.
func Export(ctx context.Context, log Log, format string, w io.Writer) (int, error) {
	entries, err := log.List(ctx)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatXLSX:
		err = WriteXLSX(w, entries)
	case FormatCSV:
		err = WriteCSV(w, entries)
	default:
		return 0, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func exportRow(e models.Interaction) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Timestamp.UTC().Format(time.RFC3339),
		e.DocumentNames,
		e.Prompt,
		e.Answer,
		e.OutputPassed,
		e.EvalReason,
		e.ModelName,
		strconv.FormatFloat(e.Temperature, 'f', -1, 64),
		strconv.FormatFloat(e.TopP, 'f', -1, 64),
	}
}

func WriteCSV(w io.Writer, entries []models.Interaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write(exportRow(e)); err != nil {
			return fmt.Errorf("csv write: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, entries []models.Interaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for r, e := range entries {
		row := r + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
		write(1, e.ID)
		write(2, e.Timestamp.UTC().Format(time.RFC3339))
		write(3, e.DocumentNames)
		write(4, e.Prompt)
		write(5, e.Answer)
		write(6, e.OutputPassed)
		write(7, e.EvalReason)
		write(8, e.ModelName)
		write(9, e.Temperature)
		write(10, e.TopP)
	}

	_ = f.SetColWidth(exportSheet, "B", "B", 22) // timestamp
	_ = f.SetColWidth(exportSheet, "C", "C", 30) // documents
	_ = f.SetColWidth(exportSheet, "D", "E", 60) // prompt, answer
	_ = f.SetColWidth(exportSheet, "G", "G", 40) // reason

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
