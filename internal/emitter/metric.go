// Package emitter builds metric records and delivers them to the monitoring
// collector as newline-delimited JSON over a stream socket.
package emitter

import (
	"errors"
	"time"

	"github.com/and161185/csm-probes/internal/utils"
	"github.com/and161185/csm-probes/model"
)

// TimestampLayout is the ISO-8601 layout used for metric timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var ErrEmptyName = errors.New("metric name is required")

var now = time.Now

// Option sets an optional metric field.
type Option func(*model.Metric)

// WithZone sets the zone label. An empty zone leaves it absent.
func WithZone(zone string) Option {
	return func(m *model.Metric) { m.Zone = utils.StrPtr(zone) }
}

// WithEnvironment sets the environment label. An empty value leaves it absent.
func WithEnvironment(env string) Option {
	return func(m *model.Metric) { m.Environment = utils.StrPtr(env) }
}

// WithAZ sets the availability zone. An empty value keeps the default.
func WithAZ(az string) Option {
	return func(m *model.Metric) {
		if az != "" {
			m.AZ = az
		}
	}
}

// WithTimestamp overrides the emission time.
func WithTimestamp(ts string) Option {
	return func(m *model.Metric) {
		if ts != "" {
			m.Timestamp = ts
		}
	}
}

// New builds a metric with the given value. Optional fields get their
// defaults: az "default" and the current time as timestamp.
func New(name string, value float64, typ model.MetricType, opts ...Option) (model.Metric, error) {
	return build(name, utils.F64Ptr(value), typ, opts)
}

// NewFailure builds a counter metric without a value, meaning an increment of one.
func NewFailure(name string, opts ...Option) (model.Metric, error) {
	return build(name, nil, model.Counter, opts)
}

func build(name string, value *float64, typ model.MetricType, opts []Option) (model.Metric, error) {
	if name == "" {
		return model.Metric{}, ErrEmptyName
	}
	m := model.Metric{
		Name:       name,
		Value:      value,
		MetricType: typ,
		AZ:         model.DefaultAZ,
		Kind:       model.KindMetric,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.Timestamp == "" {
		m.Timestamp = now().Format(TimestampLayout)
	}
	return m, nil
}
