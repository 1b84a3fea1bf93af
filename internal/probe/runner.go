package probe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/csm-probes/model"
)

// DefaultDelay spaces consecutive probes so the target is not hit in bursts.
const DefaultDelay = time.Second

// Result summarises a probing run.
type Result struct {
	Pushed           []model.Metric // Metrics delivered to the collector.
	ProbeFailures    int
	DeliveryFailures int
}

// Runner executes a probe repeatedly and emits every outcome.
type Runner struct {
	sender Sender
	delay  time.Duration
	logger *zap.SugaredLogger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner that waits delay between probes.
func NewRunner(sender Sender, delay time.Duration, logger *zap.SugaredLogger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{sender: sender, delay: delay, logger: logger, sleep: sleepCtx}
}

// Run probes count times. A failed probe or a failed delivery does not stop
// the run; only context cancellation does.
func (r *Runner) Run(ctx context.Context, p Probe, count int) (Result, error) {
	var res Result
	for i := 0; i < count; i++ {
		if i > 0 && r.delay > 0 {
			if err := r.sleep(ctx, r.delay); err != nil {
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		m, err := p.Probe(ctx)
		if err != nil {
			res.ProbeFailures++
			r.logger.Warnf("probe %d/%d failed: %v", i+1, count, err)
		}
		if m.Name == "" {
			continue
		}
		if err := r.sender.Emit(ctx, m); err != nil {
			res.DeliveryFailures++
			r.logger.Errorf("failed to push metric [%s]: %v", m.Name, err)
			continue
		}
		res.Pushed = append(res.Pushed, m)
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
