// Command obscli synchronizes the private key used by the probes with OBS
// and optionally generates an Ansible inventory from a Terraform state.
//
// Usage:
//
//	obscli -key keys/csm.pem -output ~/.ssh/csm.pem [-cloud otc] [-state terraform.tfstate -name lb]
//
// Credentials come from clouds.yaml; a temporary AK/SK is requested from
// IAM for the object storage access.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/buildinfo"
	"github.com/and161185/csm-probes/internal/client"
	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/inventory"
	"github.com/and161185/csm-probes/internal/objstore"
	"github.com/and161185/csm-probes/internal/openstack"
)

const (
	exitOK    = 0
	exitError = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewOBSConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if cfg.ShowVersion {
		buildinfo.Print(stdout, "obscli")
		return exitOK
	}

	logger := config.NewLogger(cfg.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := syncKey(ctx, cfg, stdout, logger); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if cfg.State != "" {
		if err := writeInventory(cfg, stdout); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
	}
	return exitOK
}

func syncKey(ctx context.Context, cfg *config.OBSConfig, stdout io.Writer, logger *zap.SugaredLogger) error {
	s, err := openstack.Connect(ctx, cfg.CloudsFile, cfg.Name, client.DefaultTimeout, logger.Desugar())
	if err != nil {
		return err
	}
	cred, err := openstack.TemporaryCredentials(ctx, s, openstack.DefaultCredentialDuration)
	if err != nil {
		return err
	}
	logger.Debugw("temporary credentials issued", "expires_at", cred.ExpiresAt)

	region := cfg.Region
	if region == "" {
		region = s.Endpoints.Region
	}
	obs, err := objstore.New(ctx, objstore.Config{
		Endpoint:      cfg.Endpoint,
		Region:        region,
		Bucket:        cfg.Bucket,
		PathStyle:     cfg.PathStyle,
		AccessKey:     cred.Access,
		SecretKey:     cred.Secret,
		SecurityToken: cred.SecurityToken,
	}, logger)
	if err != nil {
		return err
	}

	downloaded, err := obs.SyncFile(ctx, cfg.Key, cfg.Output)
	if err != nil {
		return err
	}
	if downloaded {
		fmt.Fprintln(stdout, "Private key downloaded")
	}
	return nil
}

func writeInventory(cfg *config.OBSConfig, stdout io.Writer) error {
	path, err := inventory.Generate(cfg.State, cfg.InventoryDir, cfg.Inventory)
	if errors.Is(err, inventory.ErrEmpty) {
		fmt.Fprintln(stdout, "Nothing to write")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "File written to: %s\n", path)
	return nil
}
