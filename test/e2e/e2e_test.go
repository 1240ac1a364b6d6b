// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"doc-investigator/internal/app"
	"doc-investigator/internal/common/camunda"
	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/database"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/investigation"
	processevaluation "doc-investigator/internal/workers/investigation/process-evaluation"
	startinvestigation "doc-investigator/internal/workers/investigation/start-investigation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The suite runs against live services: PostgreSQL,
// Redis, Elasticsearch and Zeebe. Set E2E=1 to enable it.

type fixedModel struct{ calls int }

func (m *fixedModel) Complete(context.Context, string, string, float64, float64) (string, error) {
	m.calls++
	return "Payment is due within 30 days of the invoice date.", nil
}

func loadE2EConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("E2E") == "" {
		t.Skip("set E2E=1 to run against live services")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Storage.Backend = "postgres"
	cfg.Storage.CacheBackend = "redis"
	cfg.Storage.SessionBackend = "redis"
	cfg.Storage.MirrorToElasticsearch = true
	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	}
	return cfg
}

func TestFullE2E(t *testing.T) {
	cfg := loadE2EConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log := logger.NewTestLogger(t)
	model := &fixedModel{}
	a, err := app.New(ctx, cfg, log, app.Options{Model: model})
	require.NoError(t, err, "build application against live stores")
	defer a.Close()

	// ==========================
	// 1. Service connectivity
	// ==========================
	failed := database.PingAll(ctx, a.Pingers())
	require.Empty(t, failed, "all stores must answer ping")
	t.Log("✅ PostgreSQL, Redis and Elasticsearch connected")

	zc, err := camunda.Connect(ctx, cfg.Camunda, camunda.ConnectRetry{Attempts: 3, InitialDelay: time.Second}, log)
	require.NoError(t, err, "Zeebe topology request failed")
	defer zc.Close()
	t.Log("✅ Zeebe connected")

	before, err := a.Interactions.List(ctx)
	require.NoError(t, err)

	// ==========================
	// 2. Worker round trip
	// ==========================
	doc := filepath.Join(t.TempDir(), "invoice-terms.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Invoices are payable within 30 days. Late payments accrue 2% interest."), 0o600))

	start := startinvestigation.NewHandler(
		startinvestigation.LoadConfig(config.GetWorkerConfig(cfg, startinvestigation.TaskType)),
		a.Service, a.Validator, a.Observability, log)
	evaluate := processevaluation.NewHandler(
		processevaluation.LoadConfig(config.GetWorkerConfig(cfg, processevaluation.TaskType)),
		a.Service, a.Validator, a.Observability, log)

	for round := 0; round < 2; round++ {
		started, err := start.Execute(ctx, &startinvestigation.Input{
			Documents: []investigation.Document{{Name: "invoice-terms.txt", Path: doc}},
			Prompt:    "When is payment due? " + t.Name(),
		})
		require.NoError(t, err)
		require.Equal(t, string(investigation.StatusSuspended), started.Status)
		require.NotEmpty(t, started.Token)

		done, err := evaluate.Execute(ctx, &processevaluation.Input{
			Token:   started.Token,
			Verdict: "yes",
			Reason:  "e2e",
		})
		require.NoError(t, err)
		assert.Equal(t, string(investigation.StateEnd), done.State)
		assert.True(t, done.Logged)
	}
	assert.LessOrEqual(t, model.calls, 1, "second round is served from the cache")

	// ==========================
	// 3. Interaction log
	// ==========================
	after, err := a.Interactions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+2)

	t.Log("✅ Full E2E workflow successful")
}
