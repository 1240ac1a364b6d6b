package interactionlog

import (
	"context"
	"fmt"

	"doc-investigator/internal/common/database"
	"doc-investigator/internal/models"
)

const (
	insertInteractionSQL = `INSERT INTO interactions
(timestamp, document_names, prompt, answer, output_passed, eval_reason, model_name, temperature, top_p)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	listInteractionsSQL = `SELECT id, timestamp, document_names, prompt, answer, output_passed, eval_reason, model_name, temperature, top_p
FROM interactions ORDER BY id`
)

// SQLLog stores interactions in the interactions table.
type SQLLog struct {
	client *database.SQLClient
}

func NewSQLLog(client *database.SQLClient) *SQLLog {
	return &SQLLog{client: client}
}

func (l *SQLLog) Append(ctx context.Context, e models.Interaction) error {
	_, err := l.client.DB.ExecContext(ctx, l.client.Rebind(insertInteractionSQL),
		e.Timestamp.UTC(), e.DocumentNames, e.Prompt, e.Answer, e.OutputPassed, e.EvalReason,
		e.ModelName, e.Temperature, e.TopP,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (l *SQLLog) List(ctx context.Context) ([]models.Interaction, error) {
	rows, err := l.client.DB.QueryContext(ctx, listInteractionsSQL)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		var e models.Interaction
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.DocumentNames, &e.Prompt, &e.Answer,
			&e.OutputPassed, &e.EvalReason, &e.ModelName, &e.Temperature, &e.TopP); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
