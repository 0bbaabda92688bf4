package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsrec_http_requests_total",
		Help: "HTTP requests by method, path pattern, and status.",
	}, []string{"method", "path", "status"})

	articlesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsrec_articles_ingested_total",
		Help: "Articles persisted through the ingest endpoint.",
	})

	interactionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsrec_interactions_recorded_total",
		Help: "User interactions recorded.",
	})
)

// countRequests records per-route request counts after the handler runs.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		requestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
	})
}
