package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/and161185/csm-probes/internal/utils"
	"github.com/and161185/csm-probes/model"
	"github.com/and161185/csm-probes/storage"
)

type MemStorage struct {
	metrics map[string]model.Metric
	mu      sync.RWMutex
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		metrics: make(map[string]model.Metric),
	}
}

func (store *MemStorage) Save(ctx context.Context, m model.Metric) (model.Metric, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	return store.save(m), nil
}

func (store *MemStorage) save(m model.Metric) model.Metric {
	if m.MetricType == model.Counter {
		total := storage.CounterDelta(m)
		if existing, ok := store.metrics[m.Name]; ok && existing.MetricType == model.Counter {
			total += existing.ValueOr(0)
		}
		m.Value = utils.F64Ptr(total)
	}
	store.metrics[m.Name] = m
	return m
}

func (store *MemStorage) SaveBatch(ctx context.Context, metrics []model.Metric) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, m := range metrics {
		store.save(m)
	}
	return nil
}

func (store *MemStorage) Get(ctx context.Context, name string) (model.Metric, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	val, ok := store.metrics[name]
	if !ok {
		return model.Metric{}, storage.ErrMetricNotFound
	}
	return val, nil
}

func (store *MemStorage) GetAll(ctx context.Context) (map[string]model.Metric, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	result := make(map[string]model.Metric, len(store.metrics))
	for k, v := range store.metrics {
		result[k] = v
	}
	return result, nil
}

// SaveToFile dumps the current state as JSON.
func (store *MemStorage) SaveToFile(ctx context.Context, filePath string) error {
	metrics, err := store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to get metrics: %w", err)
	}

	if len(metrics) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadFromFile restores a dump written by SaveToFile. A missing file is not an error.
func (store *MemStorage) LoadFromFile(ctx context.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	var metrics map[string]model.Metric
	if err := json.Unmarshal(data, &metrics); err != nil {
		return fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for name, m := range metrics {
		m.Name = name
		store.metrics[name] = m
	}
	return nil
}

func (store *MemStorage) Ping(ctx context.Context) error {
	return nil
}
