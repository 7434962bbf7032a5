package models

// ValidationError reports a single field that failed strict validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Validate fail-closed checks the recognized RunConfig fields: lr must be a
// positive number, epochs and batch_size positive integers. Extension-bag
// keys are not validated — they are passed through by design.
func (c *RunConfig) Validate() error {
	if len(c.badFields) > 0 {
		f := c.badFields[0]
		return &ValidationError{Field: f.field, Reason: f.reason}
	}
	if c.LR != nil && *c.LR <= 0 {
		return &ValidationError{Field: "lr", Reason: "must be positive"}
	}
	if c.Epochs != nil && *c.Epochs <= 0 {
		return &ValidationError{Field: "epochs", Reason: "must be a positive integer"}
	}
	if c.BatchSize != nil && *c.BatchSize <= 0 {
		return &ValidationError{Field: "batch_size", Reason: "must be a positive integer"}
	}
	return nil
}

// Validate checks the internally-authoritative ChatMessage fields. ID and
// Timestamp are filled by the handler before validation, so absence here
// is a caller bug, not upstream drift.
func (m *ChatMessage) Validate() error {
	if m.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !m.Role.Valid() {
		return &ValidationError{Field: "role", Reason: "must be one of user, assistant, system"}
	}
	if m.Timestamp == "" {
		return &ValidationError{Field: "timestamp", Reason: "must not be empty"}
	}
	for i := range m.RunConfigs {
		if err := m.RunConfigs[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a Run's identity and enum fields. Runs are only ever
// built by the registry, so a failure here means an internal invariant
// was violated.
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !r.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be one of pending, running, completed, failed"}
	}
	if r.CreatedAt == "" {
		return &ValidationError{Field: "created_at", Reason: "must not be empty"}
	}
	return r.Config.Validate()
}
