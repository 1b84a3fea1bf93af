package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/model"
)

const (
	DefaultTimingName  = "csm_lb_timings"
	DefaultTimeoutName = "csm_lb_timeout"
)

// DefaultZones maps load balancer backend Server headers to availability zones.
var DefaultZones = map[string]string{
	"lb-monitoring-instance0-prod": "eu-de-01",
	"lb-monitoring-instance1-prod": "eu-de-02",
	"lb-monitoring-instance2-prod": "eu-de-03",
}

// LBConfig describes a load balancer latency probe.
type LBConfig struct {
	Target      string            // Host or IP of the load balancer.
	Protocol    string            // URL scheme, http by default.
	Timeout     time.Duration     // Per-request timeout.
	TimingName  string            // Metric for answered requests.
	TimeoutName string            // Metric for timed out requests.
	Zones       map[string]string // Server header to AZ.
	Options     []emitter.Option
	Client      *http.Client
}

// LBProbe measures the time until a load balancer answers with response headers.
type LBProbe struct {
	client      *http.Client
	url         string
	timeout     time.Duration
	timingName  string
	timeoutName string
	zones       map[string]string
	opts        []emitter.Option
}

// NewLBProbe validates cfg and fills its defaults.
func NewLBProbe(cfg LBConfig) (*LBProbe, error) {
	if cfg.Target == "" {
		return nil, errors.New("load balancer target is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %s", cfg.Timeout)
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "http"
	}
	if cfg.TimingName == "" {
		cfg.TimingName = DefaultTimingName
	}
	if cfg.TimeoutName == "" {
		cfg.TimeoutName = DefaultTimeoutName
	}
	if cfg.Zones == nil {
		cfg.Zones = DefaultZones
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &LBProbe{
		client:      cfg.Client,
		url:         fmt.Sprintf("%s://%s", cfg.Protocol, cfg.Target),
		timeout:     cfg.Timeout,
		timingName:  cfg.TimingName,
		timeoutName: cfg.TimeoutName,
		zones:       cfg.Zones,
		opts:        cfg.Options,
	}, nil
}

func (p *LBProbe) Probe(ctx context.Context) (model.Metric, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.url, nil)
	if err != nil {
		return p.failure(err)
	}
	req.Header.Set("Connection", "close")
	req.Close = true

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			opts := append(p.opts[:len(p.opts):len(p.opts)], emitter.WithAZ(model.DefaultAZ))
			m, berr := emitter.New(p.timeoutName, float64(p.timeout.Milliseconds()), model.Timer, opts...)
			return m, errors.Join(fmt.Errorf("%w: timeout requesting %s: %w", ErrProbeFailed, p.url, err), berr)
		}
		return p.failure(err)
	}
	elapsed := time.Since(start)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	opts := append(p.opts[:len(p.opts):len(p.opts)], emitter.WithAZ(p.zones[resp.Header.Get("Server")]))
	return emitter.New(p.timingName, float64(elapsed.Milliseconds()), model.Timer, opts...)
}

func (p *LBProbe) failure(cause error) (model.Metric, error) {
	m, err := emitter.NewFailure(p.timingName+".failed", p.opts...)
	return m, errors.Join(fmt.Errorf("%w: requesting %s: %w", ErrProbeFailed, p.url, cause), err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
