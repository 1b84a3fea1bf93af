// Command lbprobe measures load balancer response times and pushes them to
// the collector Unix socket.
//
// Usage:
//
//	lbprobe -target 80.158.53.138 [-protocol http] [-timeout 20] [-count 30] [-socket /run/apimon.sock]
//
// The socket defaults to $APIMON_PROFILER_MESSAGE_SOCKET. The pushed metrics
// are printed to stdout as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/buildinfo"
	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/internal/probe"
	"github.com/and161185/csm-probes/model"
)

const (
	exitOK    = 0
	exitError = 1
)

// report mirrors the module result consumed by the playbooks.
type report struct {
	Changed          bool           `json:"changed"`
	PushedMetrics    []model.Metric `json:"pushed_metrics"`
	ProbeFailures    int            `json:"probe_failures"`
	DeliveryFailures int            `json:"delivery_failures"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewLBProbeConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if cfg.ShowVersion {
		buildinfo.Print(stdout, "lbprobe")
		return exitOK
	}

	logger := config.NewLogger(cfg.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := probeLB(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	out := report{
		Changed:          len(res.Pushed) > 0,
		PushedMetrics:    res.Pushed,
		ProbeFailures:    res.ProbeFailures,
		DeliveryFailures: res.DeliveryFailures,
	}
	if out.PushedMetrics == nil {
		out.PushedMetrics = []model.Metric{}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if res.DeliveryFailures > 0 {
		fmt.Fprintf(stderr, "%d of %d metrics were not delivered\n", res.DeliveryFailures, cfg.RequestCount)
		return exitError
	}
	return exitOK
}

func probeLB(ctx context.Context, cfg *config.LBProbeConfig, logger *zap.SugaredLogger) (probe.Result, error) {
	em, err := emitter.NewEmitter(emitter.UnixTarget(cfg.Socket), cfg.Timeout, logger)
	if err != nil {
		return probe.Result{}, err
	}

	p, err := probe.NewLBProbe(probe.LBConfig{
		Target:      cfg.Target,
		Protocol:    cfg.Protocol,
		Timeout:     cfg.Timeout,
		TimingName:  cfg.TimingName,
		TimeoutName: cfg.TimeoutName,
		Zones:       cfg.Zones,
		Options:     []emitter.Option{emitter.WithEnvironment(cfg.Environment), emitter.WithZone(cfg.Zone)},
		Client:      &http.Client{},
	})
	if err != nil {
		return probe.Result{}, err
	}

	logger.Infow("probing load balancer", "target", cfg.Target, "requests", cfg.RequestCount, "socket", cfg.Socket)
	return probe.NewRunner(em, cfg.Interval, logger).Run(ctx, p, cfg.RequestCount)
}
