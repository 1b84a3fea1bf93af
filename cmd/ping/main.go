// Command ping pings one host and pushes the latency to a TCP collector.
//
// Usage:
//
//	ping -host 192.168.0.10 -name csm_peering_ping.vpc-a -collector 127.0.0.1:2003 [-size 56] [-timeout 5s]
//
// Exit status is 0 on success, 1 on configuration or delivery errors and 3
// when the host did not answer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/and161185/csm-probes/internal/buildinfo"
	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/internal/probe"
)

const (
	exitOK     = 0
	exitError  = 1
	exitFailed = 3
)

var commandRunner probe.CommandRunner = probe.ExecRunner

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewPingConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if cfg.ShowVersion {
		buildinfo.Print(stdout, "ping")
		return exitOK
	}

	logger := config.NewLogger(cfg.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, portStr, _ := net.SplitHostPort(cfg.Collector)
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(stderr, "invalid collector port %q\n", portStr)
		return exitError
	}
	em, err := emitter.NewEmitter(emitter.TCPTarget(host, port), cfg.Timeout, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	pinger := &probe.Pinger{PacketSize: cfg.PacketSize, Timeout: cfg.Timeout, Run: commandRunner}
	p, err := probe.NewPingProbe(pinger, cfg.Host, cfg.Name,
		emitter.WithEnvironment(cfg.Environment), emitter.WithZone(cfg.Zone))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	m, probeErr := p.Probe(ctx)
	if probeErr != nil {
		fmt.Fprintf(stdout, "%s caused %v\n", cfg.Host, probeErr)
	}
	if err := em.Emit(ctx, m); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if probeErr != nil {
		return exitFailed
	}
	return exitOK
}
