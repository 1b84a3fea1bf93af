package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/csm-probes/internal/config"
)

func socketCollector(t *testing.T) (string, func() []string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "lb")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var (
		mu    sync.Mutex
		lines []string
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				mu.Lock()
				lines = append(lines, sc.Text())
				mu.Unlock()
			}
			conn.Close()
		}
	}()
	return path, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func TestRun_PushesEveryMeasurement(t *testing.T) {
	t.Setenv(config.SocketEnv, "")
	lb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "lb-monitoring-instance2-prod")
	}))
	defer lb.Close()
	sock, received := socketCollector(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-target", strings.TrimPrefix(lb.URL, "http://"),
		"-socket", sock, "-count", "3", "-interval", "1ms", "-timeout", "2s",
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var out report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.True(t, out.Changed)
	require.Len(t, out.PushedMetrics, 3)
	for _, m := range out.PushedMetrics {
		require.Equal(t, "csm_lb_timings", m.Name)
		require.Equal(t, "eu-de-03", m.AZ)
	}

	require.Eventually(t, func() bool { return len(received()) == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestRun_MissingSocket(t *testing.T) {
	t.Setenv(config.SocketEnv, "")
	var stdout, stderr bytes.Buffer
	code := run([]string{"-target", "127.0.0.1:1"}, &stdout, &stderr)
	require.Equal(t, exitError, code)
	require.Contains(t, stderr.String(), "socket must be set")
}

func TestRun_DeliveryFailure(t *testing.T) {
	t.Setenv(config.SocketEnv, "")
	lb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer lb.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-target", strings.TrimPrefix(lb.URL, "http://"),
		"-socket", filepath.Join(t.TempDir(), "none.sock"), "-count", "2", "-interval", "1ms",
	}, &stdout, &stderr)
	require.Equal(t, exitError, code)

	var out report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Empty(t, out.PushedMetrics)
	require.Equal(t, 2, out.DeliveryFailures)
}
