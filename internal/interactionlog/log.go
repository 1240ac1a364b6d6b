// Package interactionlog is the append-only record of finished
// investigations, with an optional Elasticsearch mirror and a flat export.
package interactionlog

import (
	"context"
	"fmt"

	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/database"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/models"
)

// Sink accepts interaction records.
type Sink interface {
	Append(ctx context.Context, entry models.Interaction) error
}

// Log is a Sink that can also list what it holds, oldest first.
type Log interface {
	Sink
	List(ctx context.Context) ([]models.Interaction, error)
}

// New returns the SQL log, mirrored to Elasticsearch when
// storage.mirror_to_elasticsearch is set and a client is available.
func New(cfg *config.Config, sqlClient *database.SQLClient, esClient *database.ElasticsearchClient, log logger.Logger) (Log, error) {
	if sqlClient == nil {
		return nil, fmt.Errorf("interaction log needs a SQL client")
	}
	primary := NewSQLLog(sqlClient)

	if !cfg.Storage.MirrorToElasticsearch {
		return primary, nil
	}
	if esClient == nil {
		return nil, fmt.Errorf("mirror_to_elasticsearch is set but elasticsearch is not configured")
	}
	return NewMirrored(primary, log, NewElasticsearchSink(esClient)), nil
}
