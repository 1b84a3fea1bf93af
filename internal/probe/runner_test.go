package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/internal/probe/mocks"
	"github.com/and161185/csm-probes/model"
)

func noSleep(context.Context, time.Duration) error { return nil }

func timer(t *testing.T, name string, v float64) model.Metric {
	t.Helper()
	m, err := emitter.New(name, v, model.Timer)
	require.NoError(t, err)
	return m
}

func TestRunner_EmitsEveryProbe(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProbe(ctrl)
	s := mocks.NewMockSender(ctrl)

	m := timer(t, "csm_lb_timings", 5)
	p.EXPECT().Probe(gomock.Any()).Return(m, nil).Times(3)
	s.EXPECT().Emit(gomock.Any(), m).Return(nil).Times(3)

	r := NewRunner(s, time.Second, nil)
	r.sleep = noSleep

	res, err := r.Run(context.Background(), p, 3)
	require.NoError(t, err)
	require.Len(t, res.Pushed, 3)
	require.Zero(t, res.ProbeFailures)
	require.Zero(t, res.DeliveryFailures)
}

func TestRunner_ContinuesAfterDeliveryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProbe(ctrl)
	s := mocks.NewMockSender(ctrl)

	m := timer(t, "x", 1)
	p.EXPECT().Probe(gomock.Any()).Return(m, nil).Times(2)
	gomock.InOrder(
		s.EXPECT().Emit(gomock.Any(), m).Return(emitter.ErrDelivery),
		s.EXPECT().Emit(gomock.Any(), m).Return(nil),
	)

	r := NewRunner(s, 0, nil)
	res, err := r.Run(context.Background(), p, 2)
	require.NoError(t, err)
	require.Equal(t, 1, res.DeliveryFailures)
	require.Len(t, res.Pushed, 1)
}

func TestRunner_ProbeFailureStillEmitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProbe(ctrl)
	s := mocks.NewMockSender(ctrl)

	failed, err := emitter.NewFailure("x.failed")
	require.NoError(t, err)
	p.EXPECT().Probe(gomock.Any()).Return(failed, ErrProbeFailed)
	s.EXPECT().Emit(gomock.Any(), failed).Return(nil)

	res, err := NewRunner(s, 0, nil).Run(context.Background(), p, 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.ProbeFailures)
	require.Equal(t, []model.Metric{failed}, res.Pushed)
}

func TestRunner_SkipsNamelessMetric(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProbe(ctrl)
	s := mocks.NewMockSender(ctrl)

	p.EXPECT().Probe(gomock.Any()).Return(model.Metric{}, errors.New("boom"))

	res, err := NewRunner(s, 0, nil).Run(context.Background(), p, 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.ProbeFailures)
	require.Empty(t, res.Pushed)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProbe(ctrl)
	s := mocks.NewMockSender(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	m := timer(t, "x", 1)
	p.EXPECT().Probe(gomock.Any()).Return(m, nil)
	s.EXPECT().Emit(gomock.Any(), m).DoAndReturn(func(context.Context, model.Metric) error {
		cancel()
		return nil
	})

	res, err := NewRunner(s, time.Hour, nil).Run(ctx, p, 5)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Pushed, 1)
}
