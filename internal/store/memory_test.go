package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/trexlab/trex/internal/store"
	"github.com/trexlab/trex/pkg/models"
)

// newTestStore creates a fresh in-memory registry for tests.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func cfg(lr float64, epochs, batch int) models.RunConfig {
	return models.RunConfig{LR: &lr, Epochs: &epochs, BatchSize: &batch}
}

// ─── CreateRuns ─────────────────────────────────────────────

func TestCreateRuns_BatchShape(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	configs := []models.RunConfig{
		cfg(0.01, 5, 32),
		cfg(0.001, 10, 64),
		cfg(0.1, 1, 16),
	}
	runs, err := s.CreateRuns(ctx, configs)
	if err != nil {
		t.Fatalf("CreateRuns() error = %v", err)
	}
	if len(runs) != len(configs) {
		t.Fatalf("CreateRuns() returned %d runs, want %d", len(runs), len(configs))
	}

	seen := make(map[string]bool)
	for i, r := range runs {
		if r.Status != models.RunStatusPending {
			t.Errorf("runs[%d].Status = %q, want pending", i, r.Status)
		}
		if !strings.HasPrefix(r.ID, "run-") {
			t.Errorf("runs[%d].ID = %q, want run- prefix", i, r.ID)
		}
		if seen[r.ID] {
			t.Errorf("duplicate run id %q", r.ID)
		}
		seen[r.ID] = true
		if r.CreatedAt == "" {
			t.Errorf("runs[%d].CreatedAt is empty", i)
		}
		// Same order as input configs.
		if *r.Config.LR != *configs[i].LR {
			t.Errorf("runs[%d].Config.LR = %v, want %v", i, *r.Config.LR, *configs[i].LR)
		}
	}
}

func TestCreateRuns_EmptyBatch(t *testing.T) {
	s := newTestStore(t)
	runs, err := s.CreateRuns(context.Background(), nil)
	if err != nil {
		t.Fatalf("CreateRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("CreateRuns(nil) returned %d runs, want 0", len(runs))
	}
}

func TestGetRun_AfterCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runs, err := s.CreateRuns(ctx, []models.RunConfig{cfg(0.01, 5, 32)})
	if err != nil {
		t.Fatalf("CreateRuns() error = %v", err)
	}

	got, err := s.GetRun(ctx, runs[0].ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.ID != runs[0].ID || got.Status != models.RunStatusPending || got.CreatedAt != runs[0].CreatedAt {
		t.Errorf("GetRun() = %+v, want %+v", got, runs[0])
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "run-does-not-exist")
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("GetRun() error = %v, want *ErrNotFound", err)
	}
	if nf.Key != "run-does-not-exist" {
		t.Errorf("ErrNotFound.Key = %q", nf.Key)
	}
}

func TestListRuns_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.CreateRuns(ctx, []models.RunConfig{cfg(0.01, 1, 8)})
	second, _ := s.CreateRuns(ctx, []models.RunConfig{cfg(0.02, 2, 16), cfg(0.03, 3, 32)})

	all, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	want := []string{first[0].ID, second[0].ID, second[1].ID}
	if len(all) != len(want) {
		t.Fatalf("ListRuns() returned %d runs, want %d", len(all), len(want))
	}
	for i, r := range all {
		if r.ID != want[i] {
			t.Errorf("ListRuns()[%d].ID = %q, want %q", i, r.ID, want[i])
		}
	}
}

func TestListRuns_ReturnsCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateRuns(ctx, []models.RunConfig{cfg(0.01, 1, 8)})

	all, _ := s.ListRuns(ctx)
	all[0].Status = models.RunStatusFailed

	again, _ := s.ListRuns(ctx)
	if again[0].Status != models.RunStatusPending {
		t.Error("mutating a ListRuns result leaked into the registry")
	}
}

// ─── CreateRunsFromExperiments ──────────────────────────────

func TestCreateRunsFromExperiments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := 91.5
	exps := []models.Experiment{
		{
			Command:         "python train.py --lr 0.01 --epochs 5",
			Hyperparameters: map[string]any{"lr": 0.01, "epochs": float64(5), "momentum": 0.9},
			Accuracy:        &acc,
			Stdout:          "acc: 91.5",
		},
		{Hyperparameters: map[string]any{}},
	}

	runs, err := s.CreateRunsFromExperiments(ctx, exps)
	if err != nil {
		t.Fatalf("CreateRunsFromExperiments() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("returned %d runs, want 2", len(runs))
	}

	r := runs[0]
	if r.Status != models.RunStatusPending {
		t.Errorf("Status = %q, want pending", r.Status)
	}
	if r.Command != exps[0].Command {
		t.Errorf("Command = %q", r.Command)
	}
	if r.Accuracy == nil || *r.Accuracy != 91.5 {
		t.Errorf("Accuracy = %v, want 91.5", r.Accuracy)
	}
	if r.Config.LR == nil || *r.Config.LR != 0.01 {
		t.Errorf("Config.LR = %v, want 0.01", r.Config.LR)
	}
	if r.Config.Extra["momentum"] != 0.9 {
		t.Errorf("Config.Extra[momentum] = %v, want 0.9", r.Config.Extra["momentum"])
	}

	// Both runs are visible via the read path.
	all, _ := s.ListRuns(ctx)
	if len(all) != 2 {
		t.Errorf("ListRuns() returned %d, want 2", len(all))
	}
}

// ─── ReportRunStatus ────────────────────────────────────────

func TestReportRunStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runs, _ := s.CreateRuns(ctx, []models.RunConfig{cfg(0.01, 1, 8)})
	if err := s.ReportRunStatus(ctx, runs[0].ID, models.RunStatusCompleted); err != nil {
		t.Fatalf("ReportRunStatus() error = %v", err)
	}

	got, _ := s.GetRun(ctx, runs[0].ID)
	if got.Status != models.RunStatusCompleted {
		t.Errorf("Status after report = %q, want completed", got.Status)
	}
	// Identity fields are untouched.
	if got.ID != runs[0].ID || got.CreatedAt != runs[0].CreatedAt {
		t.Error("ReportRunStatus changed identity fields")
	}
}

func TestReportRunStatus_Invalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	runs, _ := s.CreateRuns(ctx, []models.RunConfig{cfg(0.01, 1, 8)})

	var verr *models.ValidationError
	if !errors.As(s.ReportRunStatus(ctx, runs[0].ID, "exploded"), &verr) {
		t.Error("ReportRunStatus accepted an invalid status")
	}

	var nf *store.ErrNotFound
	if !errors.As(s.ReportRunStatus(ctx, "run-missing", models.RunStatusRunning), &nf) {
		t.Error("ReportRunStatus on missing id should return *ErrNotFound")
	}
}

// ─── Messages ───────────────────────────────────────────────

func TestMessages_AppendOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	contents := []string{"first", "second", "third"}
	for i, c := range contents {
		msg := &models.ChatMessage{
			ID:        "m" + string(rune('1'+i)),
			Role:      models.RoleUser,
			Content:   c,
			Timestamp: "2026-08-28T10:00:0" + string(rune('0'+i)) + "Z",
		}
		stored, err := s.AddMessage(ctx, msg)
		if err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
		if stored.Content != c {
			t.Errorf("AddMessage() returned %q, want %q", stored.Content, c)
		}
	}

	msgs, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("ListMessages() returned %d, want %d", len(msgs), len(contents))
	}
	for i, m := range msgs {
		if m.Content != contents[i] {
			t.Errorf("messages[%d].Content = %q, want %q", i, m.Content, contents[i])
		}
	}
}

func TestAddMessage_DoesNotAliasCaller(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &models.ChatMessage{ID: "m1", Role: models.RoleUser, Content: "original", Timestamp: "t"}
	s.AddMessage(ctx, msg)
	msg.Content = "mutated after store"

	msgs, _ := s.ListMessages(ctx)
	if msgs[0].Content != "original" {
		t.Error("caller mutation leaked into stored message")
	}
}
