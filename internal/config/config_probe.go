package config

import (
	"flag"
	"fmt"
	"net"
	"time"

	"github.com/and161185/csm-probes/internal/probe"
)

// PingConfig holds the settings of the ping probe.
type PingConfig struct {
	Common
	Host        string        // Host to ping
	Name        string        // Metric name prefix
	Collector   string        // Collector TCP address host:port
	PacketSize  int           // ICMP payload size, 0 keeps the tool default
	Timeout     time.Duration // Timeout of the ping run
	Environment string
	Zone        string
}

// NewPingConfig parses args and the CSM_* environment.
func NewPingConfig(args []string) (*PingConfig, error) {
	cfg := &PingConfig{Timeout: 5 * time.Second}

	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	registerCommon(fs, &cfg.Common)
	fs.StringVar(&cfg.Host, "host", "", "host to ping (required)")
	fs.StringVar(&cfg.Name, "name", "", "metric name prefix, e.g. csm_peering_ping.vpc (required)")
	fs.StringVar(&cfg.Collector, "collector", "", "collector TCP address host:port (required)")
	fs.IntVar(&cfg.PacketSize, "size", 0, "ICMP payload size in bytes")
	fTimeout := durationFlag{v: cfg.Timeout}
	fs.Var(&fTimeout, "timeout", "ping timeout (seconds or duration)")
	fs.StringVar(&cfg.Environment, "environment", "", "environment label")
	fs.StringVar(&cfg.Zone, "zone", "", "zone label")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Timeout = fTimeout.v

	readPingEnvironment(cfg)

	if cfg.ShowVersion {
		return cfg, nil
	}
	if cfg.Host == "" || cfg.Name == "" || cfg.Collector == "" {
		return nil, fmt.Errorf("%w: -host, -name and -collector are required", ErrMissing)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %s", cfg.Timeout)
	}
	if _, _, err := net.SplitHostPort(cfg.Collector); err != nil {
		return nil, fmt.Errorf("invalid collector address: %w", err)
	}
	return cfg, nil
}

func readPingEnvironment(cfg *PingConfig) {
	envString("CSM_COLLECTOR_ADDR", &cfg.Collector)
	envString("CSM_ENVIRONMENT", &cfg.Environment)
	envString("CSM_ZONE", &cfg.Zone)
}

// LBProbeConfig holds the settings of the load balancer probe.
type LBProbeConfig struct {
	Common
	Target       string
	Protocol     string
	Timeout      time.Duration // Per-request timeout
	RequestCount int
	Interval     time.Duration // Pause between requests
	Socket       string        // Collector Unix socket
	TimingName   string
	TimeoutName  string
	Zones        map[string]string // Server header to AZ
	Environment  string
	Zone         string
}

// NewLBProbeConfig parses args; the socket falls back to APIMON_PROFILER_MESSAGE_SOCKET.
func NewLBProbeConfig(args []string) (*LBProbeConfig, error) {
	cfg := &LBProbeConfig{
		Protocol:     "http",
		Timeout:      20 * time.Second,
		RequestCount: 30,
		Interval:     probe.DefaultDelay,
		TimingName:   probe.DefaultTimingName,
		TimeoutName:  probe.DefaultTimeoutName,
		Zones:        probe.DefaultZones,
	}

	fs := flag.NewFlagSet("lbprobe", flag.ContinueOnError)
	registerCommon(fs, &cfg.Common)
	var fSocket strFlag
	fTimeout := durationFlag{v: cfg.Timeout}
	fInterval := durationFlag{v: cfg.Interval}
	fCount := intFlag{v: cfg.RequestCount}
	zones := mapFlag{v: cfg.Zones}
	fs.StringVar(&cfg.Target, "target", "", "load balancer address (required)")
	fs.StringVar(&cfg.Protocol, "protocol", cfg.Protocol, "load balancer protocol")
	fs.Var(&fTimeout, "timeout", "request timeout (seconds or duration)")
	fs.Var(&fCount, "count", "number of requests, defaults to $LB_REQUEST_COUNT or 30")
	fs.Var(&fInterval, "interval", "pause between requests (seconds or duration)")
	fs.Var(&fSocket, "socket", "collector unix socket, defaults to $"+SocketEnv)
	fs.StringVar(&cfg.TimingName, "timing-metric", cfg.TimingName, "metric name for answered requests")
	fs.StringVar(&cfg.TimeoutName, "timeout-metric", cfg.TimeoutName, "metric name for timed out requests")
	fs.Var(&zones, "az-map", "server header to AZ mapping, server=az,...")
	fs.StringVar(&cfg.Environment, "environment", "", "environment label")
	fs.StringVar(&cfg.Zone, "zone", "", "zone label")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Timeout = fTimeout.v
	cfg.Interval = fInterval.v
	cfg.Zones = zones.v
	cfg.RequestCount = fCount.v
	if !fCount.set {
		envInt("LB_REQUEST_COUNT", &cfg.RequestCount)
	}

	envString(SocketEnv, &cfg.Socket)
	if fSocket.set {
		cfg.Socket = fSocket.v
	}
	envString("CSM_ENVIRONMENT", &cfg.Environment)
	envString("CSM_ZONE", &cfg.Zone)

	if cfg.ShowVersion {
		return cfg, nil
	}
	if cfg.Target == "" {
		return nil, fmt.Errorf("%w: -target", ErrMissing)
	}
	if cfg.Socket == "" {
		return nil, fmt.Errorf("%w: socket must be set (-socket or $%s)", ErrMissing, SocketEnv)
	}
	if cfg.RequestCount < 1 {
		return nil, fmt.Errorf("invalid request count %d", cfg.RequestCount)
	}
	return cfg, nil
}

// SendConfig holds the settings of the metric forwarder.
type SendConfig struct {
	Common
	Socket  string
	Payload string // JSON list of metric objects
}

// NewSendConfig takes the payload from the first positional argument.
func NewSendConfig(args []string) (*SendConfig, error) {
	cfg := &SendConfig{}

	fs := flag.NewFlagSet("sendmetrics", flag.ContinueOnError)
	registerCommon(fs, &cfg.Common)
	var fSocket strFlag
	fs.Var(&fSocket, "socket", "collector unix socket, defaults to $"+SocketEnv)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	envString(SocketEnv, &cfg.Socket)
	if fSocket.set {
		cfg.Socket = fSocket.v
	}
	cfg.Payload = fs.Arg(0)

	if cfg.ShowVersion {
		return cfg, nil
	}
	if cfg.Socket == "" {
		return nil, fmt.Errorf("%w: socket must be set (-socket or $%s)", ErrMissing, SocketEnv)
	}
	if cfg.Payload == "" {
		return nil, fmt.Errorf("%w: metrics payload argument", ErrMissing)
	}
	return cfg, nil
}
