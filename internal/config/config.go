// Package config provides application configuration structures and helpers.
package config

import (
	"errors"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SocketEnv names the variable holding the collector's Unix socket path.
const SocketEnv = "APIMON_PROFILER_MESSAGE_SOCKET"

// ErrMissing reports a required setting that was not provided.
var ErrMissing = errors.New("required flag missing")

// Common holds the flags shared by every command.
type Common struct {
	Debug       bool // Enable debug logging
	ShowVersion bool // Print build info and exit
}

func registerCommon(fs *flag.FlagSet, c *Common) {
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logging")
	fs.BoolVar(&c.ShowVersion, "version", false, "print build info and exit")
}

// NewLogger builds the production logger writing to stderr.
func NewLogger(debug bool) *zap.SugaredLogger {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr"}
	logCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.Must(logCfg.Build()).Sugar()
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid %s env var: %v", name, err)
			return
		}
		*dst = i
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid %s env var: %v", name, err)
			return
		}
		*dst = b
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			log.Printf("invalid %s env var: %v", name, err)
			return
		}
		*dst = d
	}
}

// parseDuration accepts Go durations and plain integers meaning seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
