package inmemory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/csm-probes/internal/utils"
	"github.com/and161185/csm-probes/model"
	"github.com/and161185/csm-probes/storage"
)

func timer(name string, v float64) model.Metric {
	return model.Metric{Name: name, Value: utils.F64Ptr(v), MetricType: model.Timer, AZ: model.DefaultAZ, Kind: model.KindMetric}
}

func counter(name string, v *float64) model.Metric {
	return model.Metric{Name: name, Value: v, MetricType: model.Counter, AZ: model.DefaultAZ, Kind: model.KindMetric}
}

func TestMemStorage_OverwriteTimer(t *testing.T) {
	ctx := context.Background()
	st := NewMemStorage()

	_, err := st.Save(ctx, timer("csm_lb_timings", 42))
	require.NoError(t, err)
	stored, err := st.Save(ctx, timer("csm_lb_timings", 100))
	require.NoError(t, err)
	require.InDelta(t, 100.0, *stored.Value, 1e-9)

	got, err := st.Get(ctx, "csm_lb_timings")
	require.NoError(t, err)
	require.InDelta(t, 100.0, *got.Value, 1e-9)
}

func TestMemStorage_AccumulateCounter(t *testing.T) {
	ctx := context.Background()
	st := NewMemStorage()

	_, _ = st.Save(ctx, counter("ping.failed", nil))
	_, _ = st.Save(ctx, counter("ping.failed", nil))
	stored, err := st.Save(ctx, counter("ping.failed", utils.F64Ptr(5)))
	require.NoError(t, err)
	require.InDelta(t, 7.0, *stored.Value, 1e-9)
}

func TestMemStorage_TypeChangeResets(t *testing.T) {
	ctx := context.Background()
	st := NewMemStorage()

	_, _ = st.Save(ctx, timer("m", 12))
	stored, _ := st.Save(ctx, counter("m", nil))
	require.InDelta(t, 1.0, *stored.Value, 1e-9)
}

func TestMemStorage_SaveDoesNotAliasCaller(t *testing.T) {
	ctx := context.Background()
	st := NewMemStorage()

	in := counter("c", utils.F64Ptr(2))
	_, _ = st.Save(ctx, in)
	_, _ = st.Save(ctx, in)
	require.InDelta(t, 2.0, *in.Value, 1e-9)
}

func TestMemStorage_GetMissing(t *testing.T) {
	_, err := NewMemStorage().Get(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrMetricNotFound)
}

func TestMemStorage_SaveBatchAndGetAll(t *testing.T) {
	ctx := context.Background()
	st := NewMemStorage()

	require.NoError(t, st.SaveBatch(ctx, []model.Metric{
		timer("a", 1), counter("b", nil), counter("b", nil),
	}))

	all, err := st.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.InDelta(t, 2.0, *all["b"].Value, 1e-9)
	require.NoError(t, st.Ping(ctx))
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "metrics.json")

	st := NewMemStorage()
	_, _ = st.Save(ctx, timer("test", 123.45))
	require.NoError(t, st.SaveToFile(ctx, file))

	restored := NewMemStorage()
	_, _ = restored.Save(ctx, timer("other", 999.99))
	require.NoError(t, restored.LoadFromFile(ctx, file))

	m, err := restored.Get(ctx, "test")
	require.NoError(t, err)
	require.InDelta(t, 123.45, *m.Value, 1e-9)

	_, err = restored.Get(ctx, "other")
	require.NoError(t, err)
}

func TestLoadFromFile_Missing(t *testing.T) {
	require.NoError(t, NewMemStorage().LoadFromFile(context.Background(), filepath.Join(t.TempDir(), "none.json")))
}

func BenchmarkSaveCounter(b *testing.B) {
	ctx := context.Background()
	st := NewMemStorage()
	m := counter("bench", nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = st.Save(ctx, m)
	}
}
