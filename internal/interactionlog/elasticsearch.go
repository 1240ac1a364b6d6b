package interactionlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"doc-investigator/internal/common/database"
	"doc-investigator/internal/models"
)

// ElasticsearchSink indexes each interaction as a document for search.
type ElasticsearchSink struct {
	es *database.ElasticsearchClient
}

func NewElasticsearchSink(es *database.ElasticsearchClient) *ElasticsearchSink {
	return &ElasticsearchSink{es: es}
}

func (s *ElasticsearchSink) Append(ctx context.Context, e models.Interaction) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}

	client := s.es.Client
	res, err := client.Index(s.es.Index, bytes.NewReader(body),
		client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index interaction: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index interaction: %s", res.Status())
	}
	return nil
}
