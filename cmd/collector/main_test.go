package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/model"
	"github.com/and161185/csm-probes/storage/inmemory"
)

func TestServe_StoresMetricLines(t *testing.T) {
	dir, err := os.MkdirTemp("", "coll")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "c.sock")

	cfg := &config.CollectorConfig{
		Addr:        "127.0.0.1:0",
		Socket:      sock,
		ReadTimeout: time.Second,
		Logger:      zaptest.NewLogger(t).Sugar(),
	}
	st := inmemory.NewMemStorage()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, cfg, st) }()

	em, err := emitter.NewEmitter(emitter.UnixTarget(sock), time.Second, nil)
	require.NoError(t, err)
	fail, err := emitter.NewFailure("csm_ping.failed")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return em.Emit(context.Background(), fail) == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, em.Emit(context.Background(), fail))

	require.Eventually(t, func() bool {
		m, err := st.Get(context.Background(), "csm_ping.failed")
		return err == nil && m.ValueOr(0) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestServe_TCPListenFailureReleasesSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "coll")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "c.sock")

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := &config.CollectorConfig{
		Addr:        "127.0.0.1:0",
		Socket:      sock,
		TCPAddr:     busy.Addr().String(),
		ReadTimeout: time.Second,
		Logger:      zaptest.NewLogger(t).Sugar(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- serve(context.Background(), cfg, inmemory.NewMemStorage()) }()
	select {
	case err := <-errCh:
		require.ErrorContains(t, err, "listen "+busy.Addr().String())
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not fail")
	}

	_, err = os.Stat(sock)
	require.True(t, os.IsNotExist(err), "socket file left behind")
}

func TestOpenStorage_RestoresAndDumps(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "metrics.json")
	cfg := &config.CollectorConfig{StoreFile: dump}

	st, release, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)
	m, err := emitter.New("csm_lb_timings", 42, model.Timer, emitter.WithAZ("eu-de-01"))
	require.NoError(t, err)
	_, err = st.Save(context.Background(), m)
	require.NoError(t, err)
	require.NoError(t, release())

	st, _, err = openStorage(context.Background(), cfg)
	require.NoError(t, err)
	got, err := st.Get(context.Background(), "csm_lb_timings")
	require.NoError(t, err)
	require.Equal(t, 42.0, got.ValueOr(0))
	require.Equal(t, "eu-de-01", got.AZ)
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Setenv(config.SocketEnv, "")
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitError, run([]string{"-a", "localhost:0"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "-socket or -tcp")

	stdout.Reset()
	require.Equal(t, exitOK, run([]string{"-version"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "Build version")
}
