// Command sendmetrics forwards metrics prepared by a playbook to the
// collector Unix socket.
//
// Usage:
//
//	sendmetrics [-socket /run/apimon.sock] "[{'name': 'x', 'value': 1, ...}]"
//
// The argument is a JSON list of metric objects; single quotes are accepted
// in place of double quotes. Every element is echoed to stdout and written
// to the socket as one line.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/buildinfo"
	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/emitter"
)

const (
	exitOK    = 0
	exitError = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewSendConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if cfg.ShowVersion {
		buildinfo.Print(stdout, "sendmetrics")
		return exitOK
	}

	logger := config.NewLogger(cfg.Debug)
	defer logger.Sync()

	lines, err := splitPayload(cfg.Payload)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	em, err := emitter.NewEmitter(emitter.UnixTarget(cfg.Socket), 0, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if err := forward(ctx, em, lines, stdout, logger); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitOK
}

// splitPayload decodes the metric list and returns each element as a
// compact JSON line.
func splitPayload(payload string) ([][]byte, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(strings.ReplaceAll(payload, "'", `"`)), &items); err != nil {
		return nil, fmt.Errorf("decode metrics payload: %w", err)
	}
	lines := make([][]byte, 0, len(items))
	for _, item := range items {
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err != nil {
			return nil, fmt.Errorf("compact metric: %w", err)
		}
		lines = append(lines, buf.Bytes())
	}
	return lines, nil
}

func forward(ctx context.Context, em *emitter.Emitter, lines [][]byte, stdout io.Writer, logger *zap.SugaredLogger) error {
	for _, line := range lines {
		if _, err := emitter.Parse(line); err != nil {
			logger.Warnf("forwarding unrecognized message %s: %v", line, err)
		}
		fmt.Fprintf(stdout, "%s\n", line)
		if err := em.Send(ctx, line); err != nil {
			return err
		}
	}
	return nil
}
