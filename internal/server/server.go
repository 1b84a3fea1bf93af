// Package server exposes the collected metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/csm-probes/internal/config"
	"github.com/and161185/csm-probes/internal/emitter"
	"github.com/and161185/csm-probes/internal/server/middleware"
	"github.com/and161185/csm-probes/model"
	"github.com/and161185/csm-probes/storage"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	storage storage.Storage
	config  *config.CollectorConfig
	logger  *zap.SugaredLogger
}

func NewServer(st storage.Storage, cfg *config.CollectorConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{storage: st, config: cfg, logger: logger}
}

// Router builds the HTTP routes with the middleware chain.
func (srv *Server) Router() (http.Handler, error) {
	trusted, err := middleware.TrustedCIDR(srv.config.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(chiMiddleware.StripSlashes)
	router.Use(middleware.LogMiddleware(srv.logger))
	router.Use(middleware.DecompressMiddleware)
	router.Use(middleware.CompressMiddleware)

	router.Get("/", srv.ListMetricsHandler)
	router.Get("/value/{name}", srv.GetMetricHandler)
	router.Get("/ping", srv.PingHandler)
	router.Group(func(r chi.Router) {
		r.Use(trusted)
		r.Post("/update", srv.UpdateMetricHandler)
		r.Post("/updates", srv.UpdateMetricsHandler)
	})
	return router, nil
}

// Run serves the API until ctx is cancelled.
func (srv *Server) Run(ctx context.Context) error {
	handler, err := srv.Router()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              srv.config.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Infow("http api listening", "address", srv.config.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.logger.Errorw("failed to write response JSON", "error", err)
	}
}

func (srv *Server) UpdateMetricHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	metric, err := emitter.Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := srv.storage.Save(r.Context(), metric)
	if err != nil {
		srv.logger.Errorw("failed to save metric", "name", metric.Name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.writeJSON(w, stored)
}

func (srv *Server) UpdateMetricsHandler(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	metrics := make([]model.Metric, 0, len(raw))
	for i, item := range raw {
		m, err := emitter.Parse(item)
		if err != nil {
			http.Error(w, fmt.Sprintf("metric %d: %v", i, err), http.StatusBadRequest)
			return
		}
		metrics = append(metrics, m)
	}

	if err := srv.storage.SaveBatch(r.Context(), metrics); err != nil {
		srv.logger.Errorw("failed to save metrics", "count", len(metrics), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) GetMetricHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	stored, err := srv.storage.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrMetricNotFound) {
			http.NotFound(w, r)
			return
		}
		srv.logger.Errorw("failed to get metric from storage", "name", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	srv.writeJSON(w, stored)
}

func (srv *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	if err := srv.storage.Ping(r.Context()); err != nil {
		srv.logger.Errorw("storage ping failed", "error", err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) ListMetricsHandler(w http.ResponseWriter, r *http.Request) {
	all, err := srv.storage.GetAll(r.Context())
	if err != nil {
		srv.logger.Errorw("failed to get all metrics from storage", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "<html><body><ul>")
	for _, name := range names {
		m := all[name]
		value := "-"
		if m.Value != nil {
			value = fmt.Sprintf("%v", *m.Value)
		}
		fmt.Fprintf(w, "<li>%s (%s, az=%s): %s</li>\n",
			html.EscapeString(name), html.EscapeString(string(m.MetricType)), html.EscapeString(m.AZ), value)
	}
	fmt.Fprintln(w, "</ul></body></html>")
}
