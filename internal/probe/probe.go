// Package probe runs one-shot network checks and turns their outcome into metrics.
package probe

import (
	"context"
	"errors"

	"github.com/and161185/csm-probes/model"
)

//go:generate mockgen -destination=mocks/mock_probe.go -package=mocks github.com/and161185/csm-probes/internal/probe Probe,Sender

var ErrProbeFailed = errors.New("probe failed")

// Probe performs one measurement. The returned metric is always emitted;
// a non-nil error marks it as describing a failed probe.
type Probe interface {
	Probe(ctx context.Context) (model.Metric, error)
}

// Sender delivers a metric to the collector.
type Sender interface {
	Emit(ctx context.Context, m model.Metric) error
}
