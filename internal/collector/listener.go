// Package collector accepts newline-delimited metric lines over Unix and
// TCP sockets and stores them.
package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/storage"
)

const maxLineSize = 1024 * 1024

// Listener reads metric lines from accepted connections until the peer
// closes or stays idle longer than the read timeout.
type Listener struct {
	storage     storage.Storage
	readTimeout time.Duration
	logger      *zap.SugaredLogger

	active   sync.WaitGroup
	received atomic.Int64
	rejected atomic.Int64
}

func NewListener(st storage.Storage, readTimeout time.Duration, logger *zap.SugaredLogger) *Listener {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Listener{storage: st, readTimeout: readTimeout, logger: logger}
}

// ListenUnix removes a stale socket file and listens on path.
func ListenUnix(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled, then closes the
// active connections and waits for their handlers to return.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	l.logger.Infow("collector listening", "network", ln.Addr().Network(), "address", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			l.logger.Errorw("accept failed", "error", err)
			continue
		}

		l.active.Add(1)
		go func() {
			defer l.active.Done()
			l.handleConnection(ctx, conn)
		}()
	}

	l.active.Wait()
	return nil
}

func (l *Listener) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	// Unblocks a pending read on shutdown, also without a read timeout.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for {
		if l.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		l.handleLine(ctx, line)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		l.logger.Warnw("read failed", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

func (l *Listener) handleLine(ctx context.Context, line []byte) {
	m, err := emitter.Parse(line)
	if err != nil {
		l.rejected.Add(1)
		l.logger.Warnw("rejected line", "error", err, "line", string(line))
		return
	}
	if _, err := l.storage.Save(ctx, m); err != nil {
		l.rejected.Add(1)
		l.logger.Errorw("save failed", "name", m.Name, "error", err)
		return
	}
	l.received.Add(1)
	l.logger.Debugw("metric stored", "name", m.Name, "type", m.MetricType, "az", m.AZ)
}

// Stats returns the number of stored and rejected lines.
func (l *Listener) Stats() (received, rejected int64) {
	return l.received.Load(), l.rejected.Load()
}
