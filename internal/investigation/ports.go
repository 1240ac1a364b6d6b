package investigation

import (
	"context"

	"doc-investigator/internal/models"
)

// DocumentProcessor checks and reads uploaded documents.
type DocumentProcessor interface {
	// Validate rejects empty batches and unsupported extensions without reading files.
	Validate(docs []Document) error
	// Extract returns the concatenated text of docs in order.
	Extract(ctx context.Context, docs []Document) (string, error)
}

// Completer asks the model to answer prompt from docContext.
type Completer interface {
	Complete(ctx context.Context, docContext, prompt string, temperature, topP float64) (string, error)
}

// CacheStore maps hex fingerprints to answers.
type CacheStore interface {
	Get(ctx context.Context, key string) (answer string, found bool, err error)
	Put(ctx context.Context, key, answer string) error
	// Touch refreshes the entry's timestamp without replacing its answer.
	Touch(ctx context.Context, key string) error
}

// InteractionLog is the append-only record of finished requests.
type InteractionLog interface {
	Append(ctx context.Context, entry models.Interaction) error
}

// SessionStore keeps suspended workflows until their verdict arrives.
type SessionStore interface {
	Save(ctx context.Context, sess *models.Session) error
	Load(ctx context.Context, token string) (*models.Session, error)
	// Take loads and removes the session in one step so a verdict is processed once.
	Take(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}
