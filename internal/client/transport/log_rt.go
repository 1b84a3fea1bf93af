// Package transport holds http.RoundTripper decorators.
package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingRoundTripper logs every API call at debug level.
// Query strings are dropped from the logged URL.
type LoggingRoundTripper struct {
	Base   http.RoundTripper
	Logger *zap.Logger
}

func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := t.Base
	if rt == nil {
		rt = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	url := *req.URL
	url.RawQuery = ""
	start := time.Now()

	resp, err := rt.RoundTrip(req)
	if err != nil {
		logger.Warn("api call failed",
			zap.String("method", req.Method),
			zap.String("url", url.String()),
			zap.Error(err))
		return nil, err
	}

	logger.Debug("api call",
		zap.String("method", req.Method),
		zap.String("url", url.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}
