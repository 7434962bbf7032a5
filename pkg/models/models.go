// Package models defines the data model shared between the registry, the
// HTTP handlers, and the upstream normalization layer: runs, run configs,
// experiments, chat messages, and Plotly-style plot payloads.
//
// Two different trust boundaries meet here. Shapes the server owns
// (RunConfig, Run, ChatMessage) validate strictly and fail closed; shapes
// that originate from the external translation service (Experiment) are
// coerced best-effort and never fail. See coerce.go for the tolerant path.
package models

import (
	"encoding/json"
)

// RunStatus is the declared lifecycle state of a run. The server assigns
// pending at creation and never transitions it on its own; the other
// values exist for the (currently unrouted) status-report path.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Valid reports whether s is one of the known run statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// RunConfig is an open hyperparameter mapping. The recognized keys (lr,
// epochs, batch_size) are typed and range-checked; everything else is
// preserved verbatim in Extra so nothing from the upstream payload is lost.
// All recognized fields are optional — partially specified configs are legal.
type RunConfig struct {
	LR        *float64
	Epochs    *int
	BatchSize *int

	// Extra holds unrecognized hyperparameter keys, passed through untouched.
	Extra map[string]any

	// decode-time type failures for recognized keys, reported by Validate
	badFields []fieldError
}

type fieldError struct {
	field  string
	reason string
}

// MarshalJSON flattens the recognized fields and the extension bag back
// into a single JSON object.
func (c RunConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.LR != nil {
		out["lr"] = *c.LR
	}
	if c.Epochs != nil {
		out["epochs"] = *c.Epochs
	}
	if c.BatchSize != nil {
		out["batch_size"] = *c.BatchSize
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a JSON object into recognized fields and the
// extension bag. Type mismatches on recognized keys are recorded rather
// than returned so Validate can name the offending field.
func (c *RunConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = RunConfig{}
	for k, v := range raw {
		switch k {
		case "lr":
			if f, ok := asFloat(v); ok {
				c.LR = &f
			} else {
				c.badFields = append(c.badFields, fieldError{"lr", "must be a number"})
			}
		case "epochs":
			if n, ok := asInt(v); ok {
				c.Epochs = &n
			} else {
				c.badFields = append(c.badFields, fieldError{"epochs", "must be an integer"})
			}
		case "batch_size":
			if n, ok := asInt(v); ok {
				c.BatchSize = &n
			} else {
				c.badFields = append(c.badFields, fieldError{"batch_size", "must be an integer"})
			}
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			c.Extra[k] = v
		}
	}
	return nil
}

// Experiment is the normalized result of one unit of work reported by the
// external translation service. It is only ever produced by the coercion
// path, so its fields are already best-effort clean.
type Experiment struct {
	Command         string         `json:"command"`
	Hyperparameters map[string]any `json:"hyperparameters"`
	Accuracy        *float64       `json:"accuracy,omitempty"`
	Stdout          string         `json:"stdout,omitempty"`
	Stderr          string         `json:"stderr,omitempty"`
}

// ExperimentBatch is the coerced top-level shape of an upstream
// /run_experiments response.
type ExperimentBatch struct {
	Experiments []Experiment `json:"experiments"`
	Summary     string       `json:"summary,omitempty"`
	RawOutput   string       `json:"raw_output,omitempty"`
}

// Run is the persisted unit of the registry. ID and CreatedAt are assigned
// at creation and never change; the record is append-only from the
// registry's point of view.
type Run struct {
	ID     string    `json:"id"`
	Status RunStatus `json:"status"`
	Config RunConfig `json:"config"`

	// Populated when the run was derived from an upstream Experiment.
	Command         string         `json:"command,omitempty"`
	Hyperparameters map[string]any `json:"hyperparameters,omitempty"`
	Accuracy        *float64       `json:"accuracy,omitempty"`
	Stdout          string         `json:"stdout,omitempty"`
	Stderr          string         `json:"stderr,omitempty"`

	// Legacy metric fields kept for older UI builds.
	ValLoss *float64 `json:"val_loss,omitempty"`
	LRUsed  *float64 `json:"lr_used,omitempty"`

	CreatedAt string `json:"created_at"`
	ImageURL  string `json:"image_url,omitempty"`
}

// ChatMessage is one turn of the conversation. Messages are stored in
// arrival order and never mutated. Unrecognized fields survive a
// round-trip via the Extra bag.
type ChatMessage struct {
	ID          string
	Role        Role
	Content     string
	Timestamp   string
	RunConfigs  []RunConfig // legacy field, still emitted by older clients
	Experiments []Experiment
	Summary     string
	RawOutput   string

	Extra map[string]any
}

// MarshalJSON emits the known fields plus the extension bag as one object.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+8)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["id"] = m.ID
	out["role"] = m.Role
	out["content"] = m.Content
	out["timestamp"] = m.Timestamp
	if m.RunConfigs != nil {
		out["runConfigs"] = m.RunConfigs
	}
	if m.Experiments != nil {
		out["experiments"] = m.Experiments
	}
	if m.Summary != "" {
		out["summary"] = m.Summary
	}
	if m.RawOutput != "" {
		out["raw_output"] = m.RawOutput
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the known fields strictly and preserves everything
// else. A wrong primitive type on a known field surfaces as a
// ValidationError naming that field.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ChatMessage{}
	for k, v := range raw {
		var err error
		switch k {
		case "id":
			err = json.Unmarshal(v, &m.ID)
		case "role":
			err = json.Unmarshal(v, &m.Role)
		case "content":
			err = json.Unmarshal(v, &m.Content)
		case "timestamp":
			err = json.Unmarshal(v, &m.Timestamp)
		case "runConfigs":
			err = json.Unmarshal(v, &m.RunConfigs)
		case "experiments":
			err = json.Unmarshal(v, &m.Experiments)
		case "summary":
			err = json.Unmarshal(v, &m.Summary)
		case "raw_output":
			err = json.Unmarshal(v, &m.RawOutput)
		default:
			var val any
			if err = json.Unmarshal(v, &val); err == nil {
				if m.Extra == nil {
					m.Extra = make(map[string]any)
				}
				m.Extra[k] = val
			}
		}
		if err != nil {
			return &ValidationError{Field: k, Reason: "wrong type"}
		}
	}
	return nil
}

// PlotData is a pass-through Plotly figure: opaque traces plus a layout
// whose unrecognized keys are preserved.
type PlotData struct {
	Data   []any      `json:"data"`
	Layout PlotLayout `json:"layout"`
}

// PlotLayout recognizes title/xaxis/yaxis and passes everything else through.
type PlotLayout struct {
	Title string
	XAxis any
	YAxis any

	Extra map[string]any
}

func (l PlotLayout) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Extra)+3)
	for k, v := range l.Extra {
		out[k] = v
	}
	if l.Title != "" {
		out["title"] = l.Title
	}
	if l.XAxis != nil {
		out["xaxis"] = l.XAxis
	}
	if l.YAxis != nil {
		out["yaxis"] = l.YAxis
	}
	return json.Marshal(out)
}

func (l *PlotLayout) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = PlotLayout{}
	for k, v := range raw {
		switch k {
		case "title":
			if s, ok := v.(string); ok {
				l.Title = s
			} else {
				return &ValidationError{Field: "title", Reason: "must be a string"}
			}
		case "xaxis":
			l.XAxis = v
		case "yaxis":
			l.YAxis = v
		default:
			if l.Extra == nil {
				l.Extra = make(map[string]any)
			}
			l.Extra[k] = v
		}
	}
	return nil
}

// asFloat accepts the numeric shapes a decoded JSON value or a
// programmatic caller can produce.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// asInt accepts integral numbers only; 5.0 is an int, 5.5 is not.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
