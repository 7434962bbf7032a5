package models

import (
	"strconv"
	"strings"
)

// The coercion path normalizes output of the external translation service.
// That service pipes through a third-party text-generation API, so its JSON
// is only loosely controlled: fields drift, numbers arrive as strings,
// objects arrive as scalars. Coercion is therefore total — malformed
// optional fields degrade to absent, never to an error. Strict validation
// (validate.go) runs afterwards on the shapes the server owns.

// CoerceExperiment normalizes one decoded JSON value into an Experiment.
// Non-object input yields the zero experiment (empty command, empty
// hyperparameter map).
func CoerceExperiment(v any) Experiment {
	exp := Experiment{Hyperparameters: map[string]any{}}
	obj, ok := v.(map[string]any)
	if !ok {
		return exp
	}
	if s, ok := obj["command"].(string); ok {
		exp.Command = s
	}
	if hp, ok := obj["hyperparameters"].(map[string]any); ok {
		exp.Hyperparameters = hp
	}
	exp.Accuracy = CoerceAccuracy(obj["accuracy"])
	if s, ok := obj["stdout"].(string); ok {
		exp.Stdout = s
	}
	if s, ok := obj["stderr"].(string); ok {
		exp.Stderr = s
	}
	return exp
}

// CoerceAccuracy accepts a number directly, or a string with at most one
// trailing "%" stripped and surrounding whitespace trimmed. Anything
// unparseable yields nil.
func CoerceAccuracy(v any) *float64 {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimSuffix(s, "%")
		s = strings.TrimSpace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		if f, ok := asFloat(v); ok {
			return &f
		}
	}
	return nil
}

// CoerceExperimentBatch extracts the experiments array and the optional
// summary/raw_output fields from a decoded upstream response. Entries that
// are not objects coerce to zero experiments rather than being dropped, so
// the result length always matches the upstream array length.
func CoerceExperimentBatch(v any) ExperimentBatch {
	var batch ExperimentBatch
	obj, ok := v.(map[string]any)
	if !ok {
		return batch
	}
	if list, ok := obj["experiments"].([]any); ok {
		batch.Experiments = make([]Experiment, 0, len(list))
		for _, item := range list {
			batch.Experiments = append(batch.Experiments, CoerceExperiment(item))
		}
	}
	if s, ok := obj["summary"].(string); ok {
		batch.Summary = s
	}
	if s, ok := obj["raw_output"].(string); ok {
		batch.RawOutput = s
	}
	return batch
}

// ConfigFromHyperparameters builds a RunConfig from an experiment's open
// hyperparameter map. Recognized keys bind when they have a usable numeric
// shape; everything else lands in the extension bag untouched.
func ConfigFromHyperparameters(hp map[string]any) RunConfig {
	var cfg RunConfig
	for k, v := range hp {
		switch k {
		case "lr":
			if f, ok := asFloat(v); ok {
				cfg.LR = &f
				continue
			}
		case "epochs":
			if n, ok := asInt(v); ok {
				cfg.Epochs = &n
				continue
			}
		case "batch_size":
			if n, ok := asInt(v); ok {
				cfg.BatchSize = &n
				continue
			}
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]any)
		}
		cfg.Extra[k] = v
	}
	return cfg
}
