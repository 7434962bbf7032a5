// Package store — in-memory Store implementation.
// Registry contents live exactly as long as the process; there is no
// on-disk format and no eviction.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/trexlab/trex/pkg/models"
)

// runIDPrefix makes run identifiers recognizable in logs and URLs.
const runIDPrefix = "run-"

// MemoryStore implements Store with mutex-guarded maps and slices.
// Reads return value copies, so callers can never mutate stored records.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]*models.Run
	runOrder []string // insertion order of run ids
	messages []*models.ChatMessage
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*models.Run),
	}
}

func (m *MemoryStore) Close() error {
	log.Info().Msg("Memory store closed")
	return nil
}

// newRunID returns a fresh globally-unique run identifier. The UUID gives
// 128 bits of randomness, so collision probability is negligible.
func newRunID() string {
	return runIDPrefix + uuid.New().String()
}

// ── Run Store ───────────────────────────────────────────────

func (m *MemoryStore) ListRuns(_ context.Context) ([]models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.Run, 0, len(m.runOrder))
	for _, id := range m.runOrder {
		result = append(result, *m.runs[id])
	}
	return result, nil
}

func (m *MemoryStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "run", Key: id}
	}
	copy := *r
	return &copy, nil
}

func (m *MemoryStore) CreateRuns(_ context.Context, configs []models.RunConfig) ([]models.Run, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	created := make([]models.Run, 0, len(configs))
	for _, cfg := range configs {
		created = append(created, models.Run{
			ID:        newRunID(),
			Status:    models.RunStatusPending,
			Config:    cfg,
			CreatedAt: now,
		})
	}
	m.storeBatch(created)
	return created, nil
}

func (m *MemoryStore) CreateRunsFromExperiments(_ context.Context, exps []models.Experiment) ([]models.Run, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	created := make([]models.Run, 0, len(exps))
	for _, exp := range exps {
		created = append(created, models.Run{
			ID:              newRunID(),
			Status:          models.RunStatusPending,
			Config:          models.ConfigFromHyperparameters(exp.Hyperparameters),
			Command:         exp.Command,
			Hyperparameters: exp.Hyperparameters,
			Accuracy:        exp.Accuracy,
			Stdout:          exp.Stdout,
			Stderr:          exp.Stderr,
			CreatedAt:       now,
		})
	}
	m.storeBatch(created)
	return created, nil
}

// storeBatch inserts all runs under a single lock so partial batches are
// never visible to readers.
func (m *MemoryStore) storeBatch(runs []models.Run) {
	m.mu.Lock()
	for i := range runs {
		copy := runs[i]
		m.runs[copy.ID] = &copy
		m.runOrder = append(m.runOrder, copy.ID)
	}
	m.mu.Unlock()

	if len(runs) > 0 {
		log.Info().Int("count", len(runs)).Msg("Runs created")
	}
}

func (m *MemoryStore) ReportRunStatus(_ context.Context, id string, status models.RunStatus) error {
	if !status.Valid() {
		return &models.ValidationError{Field: "status", Reason: "must be one of pending, running, completed, failed"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return &ErrNotFound{Entity: "run", Key: id}
	}
	r.Status = status
	return nil
}

// ── Message Store ───────────────────────────────────────────

func (m *MemoryStore) ListMessages(_ context.Context) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.ChatMessage, len(m.messages))
	for i, msg := range m.messages {
		result[i] = *msg
	}
	return result, nil
}

func (m *MemoryStore) AddMessage(_ context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	m.mu.Lock()
	copy := *msg
	m.messages = append(m.messages, &copy)
	m.mu.Unlock()

	stored := copy
	return &stored, nil
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
