// Command swiftcli manages Swift containers and objects of the CSM project.
//
// Usage:
//
//	swiftcli -container csm -object config -content config.yml      # present
//	swiftcli -container csm -object config -state absent
//	swiftcli [-container csm [-object config]] -state fetch
//
// The Swift account comes from the object-store entry of the service
// catalog unless -endpoint or SWIFT_ENDPOINT is set. A YAML content file
// is uploaded as JSON. Fetch prints the object body,
// the objects of a container or the containers of the account.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/csm-probes/internal/buildinfo"
	"github.com/and161185/csm-probes/internal/client"
	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/openstack"
	"github.com/and161185/csm-probes/internal/swift"
)

const (
	exitOK    = 0
	exitError = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewSwiftConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if cfg.ShowVersion {
		buildinfo.Print(stdout, "swiftcli")
		return exitOK
	}

	logger := config.NewLogger(cfg.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openstack.Connect(ctx, cfg.CloudsFile, cfg.Name, client.DefaultTimeout, logger.Desugar())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	objectStore, err := s.ObjectStorage(cfg.Endpoint)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	sc := swift.New(objectStore)
	logger.Debugw("swift session", "account", objectStore.Endpoint, "state", cfg.State)

	switch cfg.State {
	case config.StatePresent:
		err = present(ctx, sc, cfg, stdout)
	case config.StateAbsent:
		err = absent(ctx, sc, cfg, stdout)
	case config.StateFetch:
		err = fetch(ctx, sc, cfg, stdout)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitOK
}

func present(ctx context.Context, sc *swift.Client, cfg *config.SwiftConfig, stdout io.Writer) error {
	created, err := sc.EnsureContainer(ctx, cfg.Container)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(stdout, "container %s created\n", cfg.Container)
	}
	if cfg.Object == "" {
		return nil
	}

	body, err := swift.ContentJSON(cfg.Content)
	if err != nil {
		return err
	}
	if err := sc.PutObject(ctx, cfg.Container, cfg.Object, body); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "object %s/%s uploaded\n", cfg.Container, cfg.Object)
	return nil
}

func absent(ctx context.Context, sc *swift.Client, cfg *config.SwiftConfig, stdout io.Writer) error {
	if cfg.Object != "" {
		if err := sc.DeleteObject(ctx, cfg.Container, cfg.Object); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "object %s/%s deleted\n", cfg.Container, cfg.Object)
		return nil
	}
	if err := sc.DeleteContainer(ctx, cfg.Container); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "container %s deleted\n", cfg.Container)
	return nil
}

func fetch(ctx context.Context, sc *swift.Client, cfg *config.SwiftConfig, stdout io.Writer) error {
	if cfg.Container != "" && cfg.Object != "" {
		body, err := sc.GetObject(ctx, cfg.Container, cfg.Object)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s\n", body)
		return err
	}

	var (
		out any
		err error
	)
	switch {
	case cfg.Container != "":
		out, err = sc.ListObjects(ctx, cfg.Container)
	default:
		out, err = sc.ListContainers(ctx)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
