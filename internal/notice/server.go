package notice

import (
	"log/slog"
	"net/http"

	"github.com/noticelens/noticelens/internal/user"
)

// Server handles HTTP requests for notice summarization and user accounts
type Server struct {
	notices *Service
	users   *user.Service
	mux     *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(notices *Service, users *user.Service) *Server {
	return NewServerWithMux(notices, users, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(notices *Service, users *user.Service, mux *http.ServeMux) *Server {
	s := &Server{
		notices: notices,
		users:   users,
		mux:     mux,
	}
	s.registerRoutes()
	return s
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsMiddleware adds CORS headers to responses and answers preflight
// OPTIONS requests
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /summarize", s.handleSummarize)
	s.mux.HandleFunc("POST /register", s.handleRegister)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		s.mux.ServeHTTP(w, r)
	})(w, r)
}
