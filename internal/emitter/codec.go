package emitter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/csm-probes/model"
)

var (
	ErrSerialize   = errors.New("serialize metric")
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownKind = errors.New("unknown message type")
)

// Serialize renders the metric as compact JSON without a trailing newline.
func Serialize(m model.Metric) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSerialize, m.Name, err)
	}
	return b, nil
}

// Parse decodes one message line received by a collector.
// Only messages of kind "metric" are accepted.
func Parse(line []byte) (model.Metric, error) {
	var m model.Metric
	if err := json.Unmarshal(line, &m); err != nil {
		return model.Metric{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if m.Kind != model.KindMetric {
		return model.Metric{}, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	if m.Name == "" {
		return model.Metric{}, fmt.Errorf("%w: %w", ErrMalformed, ErrEmptyName)
	}
	return m, nil
}
