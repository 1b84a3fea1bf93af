package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/model"
)

var ErrNoLatency = errors.New("no latency in ping output")

var latencyRe = regexp.MustCompile(`time[=<]([0-9]+(?:\.[0-9]+)?)`)

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command through os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Pinger sends a single ICMP echo through the system ping tool.
type Pinger struct {
	Command    string        // Defaults to "ping".
	PacketSize int           // Passed as -s when positive.
	Timeout    time.Duration // Upper bound for the whole ping run.
	Run        CommandRunner // Defaults to ExecRunner.
}

// ParseLatency extracts the round-trip time in milliseconds from ping output.
func ParseLatency(out string) (float64, error) {
	match := latencyRe.FindStringSubmatch(out)
	if match == nil {
		return 0, ErrNoLatency
	}
	return strconv.ParseFloat(match[1], 64)
}

// Ping returns the round-trip latency to host in milliseconds.
func (p *Pinger) Ping(ctx context.Context, host string) (float64, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := p.Command
	if cmd == "" {
		cmd = "ping"
	}
	args := []string{"-c", "1"}
	if p.PacketSize > 0 {
		args = append(args, "-s", strconv.Itoa(p.PacketSize))
	}
	args = append(args, host)

	run := p.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, cmd, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", ErrProbeFailed, cmd, host, err)
	}
	ms, err := ParseLatency(string(out))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrProbeFailed, host, err)
	}
	return ms, nil
}

// PingProbe reports ping latency as <name>.success or a <name>.failed counter.
type PingProbe struct {
	pinger *Pinger
	host   string
	name   string
	opts   []emitter.Option
}

// NewPingProbe creates a ping probe for host reporting under the metric name prefix.
func NewPingProbe(pinger *Pinger, host, name string, opts ...emitter.Option) (*PingProbe, error) {
	if host == "" {
		return nil, errors.New("ping host is required")
	}
	if name == "" {
		return nil, emitter.ErrEmptyName
	}
	if pinger == nil {
		pinger = &Pinger{}
	}
	return &PingProbe{pinger: pinger, host: host, name: name, opts: opts}, nil
}

func (p *PingProbe) Probe(ctx context.Context) (model.Metric, error) {
	ms, err := p.pinger.Ping(ctx, p.host)
	if err != nil {
		m, berr := emitter.NewFailure(p.name+".failed", p.opts...)
		return m, errors.Join(err, berr)
	}
	return emitter.New(p.name+".success", ms, model.Timer, p.opts...)
}
