package config

import (
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"
)

// CollectorConfig holds the configuration of the development collector.
type CollectorConfig struct {
	Common
	Addr          string // HTTP inspection API address
	Logger        *zap.SugaredLogger
	Socket        string        // Unix socket to accept metric lines on
	TCPAddr       string        // TCP address to accept metric lines on
	DatabaseDsn   string        // Data Source Name for PostgreSQL
	StoreFile     string        // In-memory dump file, restored on start and written on stop
	TrustedSubnet string        // CIDR, ex. "192.168.1.0/24"
	ReadTimeout   time.Duration // Idle timeout of a metric connection
}

// NewCollectorConfig creates the collector configuration from args, an optional JSON file and the environment.
func NewCollectorConfig(args []string) (*CollectorConfig, error) {
	// 0) defaults
	cfg := &CollectorConfig{
		Addr:        "localhost:8080",
		ReadTimeout: 5 * time.Second,
	}

	// 1) flags
	fs := flag.NewFlagSet("collector", flag.ContinueOnError)
	registerCommon(fs, &cfg.Common)
	fAddr := strFlag{v: cfg.Addr}
	fTimeout := durationFlag{v: cfg.ReadTimeout}
	var fSocket, fTCP, fDSN, fFile, fConf, fTrustedSubnet strFlag
	fs.Var(&fAddr, "a", "HTTP server address")
	fs.Var(&fSocket, "socket", "unix socket for metric lines, defaults to $"+SocketEnv)
	fs.Var(&fTCP, "tcp", "TCP address for metric lines")
	fs.Var(&fDSN, "d", "DB connection string")
	fs.Var(&fFile, "f", "path to metrics dump file")
	fs.Var(&fTimeout, "read-timeout", "idle timeout of a metric connection")
	fs.Var(&fConf, "c", "Path to JSON config file")
	fs.Var(&fConf, "config", "Path to JSON config file (alias)")
	fs.Var(&fTrustedSubnet, "t", "trusted subnet")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Addr = fAddr.v
	cfg.Socket = fSocket.v
	cfg.TCPAddr = fTCP.v
	cfg.DatabaseDsn = fDSN.v
	cfg.StoreFile = fFile.v
	cfg.TrustedSubnet = fTrustedSubnet.v
	cfg.ReadTimeout = fTimeout.v

	// 2) JSON (lowest priority)
	if fConf.v == "" {
		envString("CONFIG", &fConf.v)
	}
	if fConf.v != "" {
		js, err := loadCollectorJSON(fConf.v)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", fConf.v, err)
		}
		applyCollectorJSON(cfg, js, flagsSet{
			addr: fAddr.set, socket: fSocket.set, tcp: fTCP.set, dsn: fDSN.set,
			file: fFile.set, subnet: fTrustedSubnet.set, timeout: fTimeout.set,
		})
	}

	// 3) environment
	readCollectorEnvironment(cfg)

	if !cfg.ShowVersion && cfg.Socket == "" && cfg.TCPAddr == "" {
		return nil, fmt.Errorf("%w: -socket or -tcp", ErrMissing)
	}

	cfg.Logger = NewLogger(cfg.Debug)
	return cfg, nil
}

type flagsSet struct {
	addr, socket, tcp, dsn, file, subnet, timeout bool
}

func applyCollectorJSON(cfg *CollectorConfig, js *collectorJSON, set flagsSet) {
	if js.Address != nil && !set.addr {
		cfg.Addr = *js.Address
	}
	if js.Socket != nil && !set.socket {
		cfg.Socket = *js.Socket
	}
	if js.TCPAddress != nil && !set.tcp {
		cfg.TCPAddr = *js.TCPAddress
	}
	if js.DatabaseDSN != nil && !set.dsn {
		cfg.DatabaseDsn = *js.DatabaseDSN
	}
	if js.StoreFile != nil && !set.file {
		cfg.StoreFile = *js.StoreFile
	}
	if js.TrustedSubnet != nil && !set.subnet {
		cfg.TrustedSubnet = *js.TrustedSubnet
	}
	if js.ReadTimeout != nil && !set.timeout {
		if d, err := parseDuration(*js.ReadTimeout); err == nil {
			cfg.ReadTimeout = d
		} else {
			log.Printf("invalid read_timeout in config: %v", err)
		}
	}
}

func readCollectorEnvironment(cfg *CollectorConfig) {
	envString("ADDRESS", &cfg.Addr)
	envString(SocketEnv, &cfg.Socket)
	envString("COLLECTOR_TCP_ADDRESS", &cfg.TCPAddr)
	envString("DATABASE_DSN", &cfg.DatabaseDsn)
	envString("FILE_STORAGE_PATH", &cfg.StoreFile)
	envString("TRUSTED_SUBNET", &cfg.TrustedSubnet)
	envDuration("READ_TIMEOUT", &cfg.ReadTimeout)
}
