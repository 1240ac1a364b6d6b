package investigation

import (
	"context"
	"sync"
	"testing"

	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/models"
)

// ==========================
// Test Doubles
// ==========================

type fakeDocuments struct {
	mu          sync.Mutex
	validateErr error
	text        string
	extractErr  error
	extracts    int
}

func (f *fakeDocuments) Validate(docs []Document) error { return f.validateErr }

func (f *fakeDocuments) Extract(_ context.Context, _ []Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracts++
	return f.text, f.extractErr
}

type fakeModel struct {
	mu          sync.Mutex
	answer      string
	err         error
	calls       int
	lastContext string
	lastPrompt  string
	temperature float64
	topP        float64

	// When release is set, Complete signals started and blocks until release
	// is closed or its context ends.
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (f *fakeModel) Complete(ctx context.Context, docContext, prompt string, temperature, topP float64) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastContext = docContext
	f.lastPrompt = prompt
	f.temperature = temperature
	f.topP = topP
	answer, err, started, release := f.answer, f.err, f.started, f.release
	f.mu.Unlock()

	if release == nil {
		return answer, err
	}
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	select {
	case <-release:
	case <-ctx.Done():
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErr = ctx.Err()
	if f.ctxErr != nil {
		return "", f.ctxErr
	}
	return answer, err
}

// block makes the next calls wait for the returned release function.
func (f *fakeModel) block() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = make(chan struct{}, 1)
	f.release = make(chan struct{})
	ch := f.release
	return f.started, func() { close(ch) }
}

func (f *fakeModel) CtxErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctxErr
}

func (f *fakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr   error
	putErr   error
	touchErr error
	gets     int
	puts     int
	touches  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return "", false, f.getErr
	}
	a, ok := f.entries[key]
	return a, ok, nil
}

func (f *fakeCache) Put(_ context.Context, key, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[key] = answer
	return nil
}

func (f *fakeCache) Touch(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	return f.touchErr
}

type fakeLog struct {
	mu      sync.Mutex
	entries []models.Interaction
	err     error
}

func (f *fakeLog) Append(_ context.Context, entry models.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLog) Entries() []models.Interaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Interaction(nil), f.entries...)
}

// ==========================
// Test Helper Functions
// ==========================

type testRig struct {
	docs   *fakeDocuments
	model  *fakeModel
	cache  *fakeCache
	log    *fakeLog
	engine *Engine
}

func createTestSettings() Settings {
	return Settings{
		ModelName: "test-model",
		Sentinels: []string{
			config.DefaultUnknownAnswer,
			config.DefaultNotAllowedAnswer,
			config.DefaultTokenLimitAnswer,
		},
		NoReasonGiven:      config.DefaultNoReasonGiven,
		DefaultTemperature: config.DefaultTemperature,
		DefaultTopP:        config.DefaultTopP,
	}
}

func createTestRig(t *testing.T, settings Settings) *testRig {
	t.Helper()
	rig := &testRig{
		docs:  &fakeDocuments{text: "--- CONTENT FROM contract.pdf ---\nThe term is 12 months."},
		model: &fakeModel{answer: "The contract term is 12 months."},
		cache: newFakeCache(),
		log:   &fakeLog{},
	}
	rig.engine = NewEngine(settings, Dependencies{
		Documents: rig.docs,
		Model:     rig.model,
		Cache:     rig.cache,
		Log:       rig.log,
	}, logger.NewTestLogger(t))
	return rig
}

func createTestRequest() Request {
	return Request{
		Documents: []Document{{Name: "contract.pdf", Path: "/tmp/uploads/contract.pdf"}},
		Prompt:    "How long is the contract term?",
		Params:    Params{ParamTemperature: 0.2, ParamTopP: 0.95},
	}
}
