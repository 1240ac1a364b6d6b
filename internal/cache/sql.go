package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"doc-investigator/internal/common/database"
	"doc-investigator/internal/models"
)

const (
	selectAnswerSQL = `SELECT llm_answer FROM interactions_cache WHERE cache_key = ?`
	selectEntrySQL  = `SELECT cache_key, llm_answer, created_at FROM interactions_cache WHERE cache_key = ?`
	upsertAnswerSQL = `INSERT INTO interactions_cache (cache_key, llm_answer, created_at) VALUES (?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET llm_answer = excluded.llm_answer, created_at = excluded.created_at`
	touchEntrySQL  = `UPDATE interactions_cache SET created_at = ? WHERE cache_key = ?`
	deleteEntrySQL = `DELETE FROM interactions_cache WHERE cache_key = ?`
)

// SQLStore keeps answers in the interactions_cache table of SQLite or PostgreSQL.
type SQLStore struct {
	client *database.SQLClient
	now    func() time.Time
}

func NewSQLStore(client *database.SQLClient) *SQLStore {
	return &SQLStore{client: client, now: nowUTC}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var answer string
	err := s.client.DB.QueryRowContext(ctx, s.client.Rebind(selectAnswerSQL), key).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select cached answer: %w", err)
	}
	return answer, true, nil
}

// Put inserts or replaces the answer and stamps created_at with the current time.
func (s *SQLStore) Put(ctx context.Context, key, answer string) error {
	if _, err := s.client.DB.ExecContext(ctx, s.client.Rebind(upsertAnswerSQL), key, answer, s.now()); err != nil {
		return fmt.Errorf("upsert cached answer: %w", err)
	}
	return nil
}

// Touch stamps created_at without rewriting the answer.
func (s *SQLStore) Touch(ctx context.Context, key string) error {
	if _, err := s.client.DB.ExecContext(ctx, s.client.Rebind(touchEntrySQL), s.now(), key); err != nil {
		return fmt.Errorf("touch cached answer: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DB.ExecContext(ctx, s.client.Rebind(deleteEntrySQL), key); err != nil {
		return fmt.Errorf("delete cached answer: %w", err)
	}
	return nil
}

// Entry returns the full row for key.
func (s *SQLStore) Entry(ctx context.Context, key string) (*models.CacheEntry, error) {
	var e models.CacheEntry
	err := s.client.DB.QueryRowContext(ctx, s.client.Rebind(selectEntrySQL), key).Scan(&e.Key, &e.Answer, &e.WrittenAt)
	if err != nil {
		return nil, fmt.Errorf("select cache entry: %w", err)
	}
	return &e, nil
}
