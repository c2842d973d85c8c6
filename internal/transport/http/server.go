package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NewsSearch/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter matches on the escaped path so an encoded article URL reaches
// the detail handler as one segment, %2F included.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(requestLogger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/sessions", h.createSession).Methods(http.MethodPost)
	s := r.PathPrefix("/sessions").Subrouter()
	s.HandleFunc("/{id}", h.getSession).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.closeSession).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/search", h.searchSession).Methods(http.MethodPost)
	s.HandleFunc("/{id}/pages/{direction}", h.loadPage).Methods(http.MethodPost)
	s.HandleFunc("/{id}/retry", h.retry).Methods(http.MethodPost)
	s.HandleFunc("/{id}/refresh", h.refresh).Methods(http.MethodPost)
	s.HandleFunc("/{id}/articles/{encodedURL}", h.article).Methods(http.MethodGet)

	hist := r.PathPrefix("/history").Subrouter()
	hist.HandleFunc("/searches", h.recentSearches).Methods(http.MethodGet)
	hist.HandleFunc("/most-viewed", h.mostViewed).Methods(http.MethodGet)

	return r
}

func NewHTTPServer(cfg *config.Config, h *Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Handled request", "method", r.Method, "path", r.URL.EscapedPath(), "duration", time.Since(start))
	})
}
