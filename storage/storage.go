// Package storage defines where the collector keeps received metrics.
package storage

import (
	"context"
	"errors"

	"github.com/and161185/csm-probes/model"
)

var ErrMetricNotFound = errors.New("metric not found")

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks github.com/and161185/csm-probes/storage Storage

// Storage keeps the latest state of every metric name. Timers keep the last
// value, counters accumulate.
type Storage interface {
	Save(ctx context.Context, m model.Metric) (model.Metric, error)
	SaveBatch(ctx context.Context, metrics []model.Metric) error
	Get(ctx context.Context, name string) (model.Metric, error)
	GetAll(ctx context.Context) (map[string]model.Metric, error)
	Ping(ctx context.Context) error
}

// CounterDelta is the increment a counter metric contributes; an absent
// value counts as one event.
func CounterDelta(m model.Metric) float64 {
	return m.ValueOr(1)
}
