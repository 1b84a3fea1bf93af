package emitter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/csm-probes/model"
)

var ErrDelivery = errors.New("metric delivery failed")

// Emitter delivers metric lines to a collector. Every Send opens its own
// connection; nothing is pooled, buffered or retried.
type Emitter struct {
	target Target
	dialer net.Dialer
	logger *zap.SugaredLogger
}

// NewEmitter creates an emitter for target. A zero timeout means the dial
// is bounded only by the context.
func NewEmitter(target Target, timeout time.Duration, logger *zap.SugaredLogger) (*Emitter, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Emitter{
		target: target,
		dialer: net.Dialer{Timeout: timeout},
		logger: logger,
	}, nil
}

// Target returns the collector address.
func (e *Emitter) Target() Target { return e.target }

// Send connects to the target, writes line followed by a single newline and closes.
func (e *Emitter) Send(ctx context.Context, line []byte) error {
	conn, err := e.dialer.DialContext(ctx, e.target.Network, e.target.Address)
	if err != nil {
		e.logger.Errorf("error establishing connection to %s: %v", e.target, err)
		return fmt.Errorf("%w: connect %s: %w", ErrDelivery, e.target, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	msg := make([]byte, 0, len(line)+1)
	msg = append(msg, line...)
	msg = append(msg, '\n')
	if _, err := conn.Write(msg); err != nil {
		e.logger.Errorf("error writing message to %s: %v", e.target, err)
		return fmt.Errorf("%w: write %s: %w", ErrDelivery, e.target, err)
	}
	return nil
}

// Emit serializes m and sends it.
func (e *Emitter) Emit(ctx context.Context, m model.Metric) error {
	line, err := Serialize(m)
	if err != nil {
		return err
	}
	if err := e.Send(ctx, line); err != nil {
		return err
	}
	e.logger.Debugw("metric pushed", "name", m.Name, "target", e.target.String())
	return nil
}
