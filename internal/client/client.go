// Package client builds the HTTP client used for OpenStack API calls.
package client

import (
	"crypto/tls"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/client/transport"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns a logging client. tlsConfig may be nil.
func NewHTTPClient(timeout time.Duration, tlsConfig *tls.Config, logger *zap.Logger) http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		base.TLSClientConfig = tlsConfig
	}

	return http.Client{
		Timeout:   timeout,
		Transport: &transport.LoggingRoundTripper{Base: base, Logger: logger},
	}
}
