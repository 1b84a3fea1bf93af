package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/model"
)

func withRunner(t *testing.T, out string, err error) {
	t.Helper()
	old := commandRunner
	commandRunner = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(out), err
	}
	t.Cleanup(func() { commandRunner = old })
}

func collector(t *testing.T) (string, <-chan string) {
	t.Helper()
	t.Setenv("CSM_COLLECTOR_ADDR", "")
	t.Setenv(config.SocketEnv, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	lines := make(chan string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				lines <- sc.Text()
			}
			conn.Close()
		}
	}()
	return ln.Addr().String(), lines
}

func recvMetric(t *testing.T, lines <-chan string) model.Metric {
	t.Helper()
	select {
	case l := <-lines:
		m, err := emitter.Parse([]byte(l))
		require.NoError(t, err)
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no metric received")
		return model.Metric{}
	}
}

func TestRun_Success(t *testing.T) {
	addr, lines := collector(t)
	withRunner(t, "64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=12.3 ms", nil)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-host", "10.0.0.1", "-name", "csm_peering_ping.vpc", "-collector", addr}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	m := recvMetric(t, lines)
	require.Equal(t, "csm_peering_ping.vpc.success", m.Name)
	require.Equal(t, model.Timer, m.MetricType)
	require.InDelta(t, 12.3, *m.Value, 1e-9)
}

func TestRun_HostDown(t *testing.T) {
	addr, lines := collector(t)
	withRunner(t, "1 packets transmitted, 0 received", errors.New("exit status 1"))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-host", "10.0.0.9", "-name", "csm_ping.vm", "-collector", addr}, &stdout, &stderr)
	require.Equal(t, exitFailed, code)

	m := recvMetric(t, lines)
	require.Equal(t, "csm_ping.vm.failed", m.Name)
	require.Equal(t, model.Counter, m.MetricType)
	require.Nil(t, m.Value)
	require.Contains(t, stdout.String(), "10.0.0.9 caused")
}

func TestRun_CollectorDown(t *testing.T) {
	t.Setenv("CSM_COLLECTOR_ADDR", "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	withRunner(t, "time=1 ms", nil)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-host", "h", "-name", "n", "-collector", addr, "-timeout", "1s"}, &stdout, &stderr)
	require.Equal(t, exitError, code)
	require.Contains(t, stderr.String(), "delivery failed")
}

func TestRun_ConfigErrorAndVersion(t *testing.T) {
	t.Setenv("CSM_COLLECTOR_ADDR", "")
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitError, run([]string{"-host", "h"}, &stdout, &stderr))
	require.NotEmpty(t, stderr.String())

	stdout.Reset()
	require.Equal(t, exitOK, run([]string{"-version"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "Build version:")
}
