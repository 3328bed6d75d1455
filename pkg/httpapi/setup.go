package httpapi

import (
	"net/http"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
)

// Server is the retrieval API HTTP server.
type Server struct {
	cfg    Config
	http   *http.Server
	logger *logger.Logger
}

// NewServer builds the route table and wraps every route in the shared
// middleware chain.
func NewServer(cfg Config, retriever Retriever, l *logger.Logger, m *metrics.Metrics) *Server {
	h := &handlers{retriever: retriever, logger: l}
	limiter := newCallerLimiter(cfg.RateLimitPerMinute)

	wrap := func(route string, fn http.HandlerFunc) http.HandlerFunc {
		return middleware(fn, route, cfg, limiter, l, m)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{table}/get/{id}", wrap("/{table}/get/{id}", h.get))
	mux.HandleFunc("GET /{table}/list", wrap("/{table}/list", h.list))
	mux.HandleFunc("POST /{table}/search", wrap("/{table}/search", h.search))
	mux.HandleFunc("DELETE /{table}/delete/{id}", wrap("/{table}/delete/{id}", h.delete))
	mux.HandleFunc("GET /healthz", h.healthz)

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:    cfg.Address,
			Handler: mux,
		},
		logger: l,
	}
}

// Handler exposes the route table, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
