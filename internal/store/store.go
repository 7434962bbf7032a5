// Package store provides the run registry: the authoritative in-memory
// collection of Run and ChatMessage records for the life of the process.
// Handlers depend on the Store interface, never on a concrete
// implementation, so a persistent backend can be swapped in later.
package store

import (
	"context"

	"github.com/trexlab/trex/pkg/models"
)

// Store is the registry interface. There is deliberately no update or
// delete for either collection: the server never learns a run's true
// terminal state (no callback or poll from the execution side exists),
// and chat history is append-only.
type Store interface {
	RunStore
	MessageStore

	// Close releases all resources held by the store.
	Close() error
}

// RunStore holds Run records, addressed by generated identifiers.
type RunStore interface {
	// ListRuns returns all runs in insertion order.
	ListRuns(ctx context.Context) ([]models.Run, error)

	// GetRun returns the run with the given id, or *ErrNotFound.
	GetRun(ctx context.Context, id string) (*models.Run, error)

	// CreateRuns stores one pending run per config and returns them in
	// input order. The whole batch becomes visible atomically.
	CreateRuns(ctx context.Context, configs []models.RunConfig) ([]models.Run, error)

	// CreateRunsFromExperiments stores one pending run per normalized
	// upstream experiment, deriving each run's config from the
	// experiment's hyperparameters.
	CreateRunsFromExperiments(ctx context.Context, exps []models.Experiment) ([]models.Run, error)

	// ReportRunStatus is the only path that mutates a run's status. No
	// HTTP route calls it today; it exists so a future status channel
	// (webhook, poll) does not require a data-model change.
	ReportRunStatus(ctx context.Context, id string, status models.RunStatus) error
}

// MessageStore holds the chat transcript in arrival order.
type MessageStore interface {
	ListMessages(ctx context.Context) ([]models.ChatMessage, error)
	AddMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
}

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
