// Command collector is a development collector for probe metrics. It reads
// metric lines from a Unix socket and/or a TCP address, stores them and
// serves an HTTP inspection API.
//
// Usage:
//
//	collector -socket /run/apimon.sock [-tcp 127.0.0.1:2003] [-a localhost:8080] [-d postgres://...] [-f metrics.json]
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
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/and161185/csm-probes/internal/buildinfo"
	"github.com/and161185/csm-probes/internal/collector"
	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/server"
	"github.com/and161185/csm-probes/storage"
	"github.com/and161185/csm-probes/storage/inmemory"
	"github.com/and161185/csm-probes/storage/postgres"
)

const (
	exitOK    = 0
	exitError = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewCollectorConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if cfg.ShowVersion {
		buildinfo.Print(stdout, "collector")
		return exitOK
	}
	defer cfg.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, release, err := openStorage(ctx, cfg)
	if err != nil {
		cfg.Logger.Errorw("failed to open storage", "error", err)
		return exitError
	}

	err = serve(ctx, cfg, st)
	if rerr := release(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	if err != nil {
		cfg.Logger.Errorw("collector stopped", "error", err)
		return exitError
	}
	return exitOK
}

// openStorage returns postgres when a DSN is configured, otherwise a
// memory store restored from the dump file. The returned function releases
// the storage and writes the dump.
func openStorage(ctx context.Context, cfg *config.CollectorConfig) (storage.Storage, func() error, error) {
	if cfg.DatabaseDsn != "" {
		pg, err := postgres.NewPostgresStorage(ctx, cfg.DatabaseDsn)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() error { pg.Close(); return nil }, nil
	}

	mem := inmemory.NewMemStorage()
	if cfg.StoreFile == "" {
		return mem, func() error { return nil }, nil
	}
	if err := mem.LoadFromFile(ctx, cfg.StoreFile); err != nil {
		return nil, nil, err
	}
	return mem, func() error { return mem.SaveToFile(context.Background(), cfg.StoreFile) }, nil
}

// listen opens the configured sockets. Nothing stays open on error.
func listen(cfg *config.CollectorConfig) ([]net.Listener, error) {
	var listeners []net.Listener
	if cfg.Socket != "" {
		ln, err := collector.ListenUnix(cfg.Socket)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, ln)
	}
	if cfg.TCPAddr != "" {
		ln, err := net.Listen("tcp", cfg.TCPAddr)
		if err != nil {
			for _, opened := range listeners {
				opened.Close()
			}
			return nil, fmt.Errorf("listen %s: %w", cfg.TCPAddr, err)
		}
		listeners = append(listeners, ln)
	}
	return listeners, nil
}

// serve runs the listeners and the HTTP API over st until ctx is cancelled.
func serve(ctx context.Context, cfg *config.CollectorConfig, st storage.Storage) error {
	cfg.Logger.Infof("Collector config: Addr=%s, Socket=%q, TCP=%q, StoreFile=%q, DatabaseDSN set=%t",
		cfg.Addr, cfg.Socket, cfg.TCPAddr, cfg.StoreFile, cfg.DatabaseDsn != "")

	listeners, err := listen(cfg)
	if err != nil {
		return err
	}

	listener := collector.NewListener(st, cfg.ReadTimeout, cfg.Logger)
	g, gctx := errgroup.WithContext(ctx)
	for _, ln := range listeners {
		g.Go(func() error { return listener.Serve(gctx, ln) })
	}
	g.Go(func() error { return server.NewServer(st, cfg).Run(gctx) })

	err = g.Wait()
	received, rejected := listener.Stats()
	cfg.Logger.Infow("collector shut down", "received", received, "rejected", rejected)
	return err
}
