// Package http serves the Billed UI: login, the bill list with its
// receipt viewer, and the new-bill form.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"billed/internal/bills"
	"billed/internal/log"
	"billed/internal/middleware/ratelimit"
	"billed/internal/middleware/security"
	"billed/internal/middleware/trace"
	"billed/internal/newbill"
	"billed/internal/session"
	"billed/internal/store"
	appweb "billed/web"
)

// EventPublisher announces a created bill to interested consumers.
// Delivery is best effort; a failure never fails the submission.
type EventPublisher interface {
	PublishBillCreated(ctx context.Context, billID, email string) error
}

// Deps carries everything the server needs.
type Deps struct {
	Sessions *session.Store
	Auth     store.Authenticator
	Bills    *bills.Service
	NewBill  *newbill.Pipeline
	Events   EventPublisher
	Logger   *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Store
	auth      store.Authenticator
	bills     *bills.Service
	pipeline  *newbill.Pipeline
	events    EventPublisher
	logger    *log.Logger

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		sessions: deps.Sessions,
		auth:     deps.Auth,
		bills:    deps.Bills,
		pipeline: deps.NewBill,
		events:   deps.Events,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Error("failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleLoginPage)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/bills", s.handleBills)
	mux.HandleFunc("/bills/proof", s.handleProof)
	mux.HandleFunc("/bills/new", s.handleNewBillPage)
	mux.HandleFunc("/bills/new/file", s.handleFileSelect)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	ips := security.NewIPResolver()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(ips.ExtractClientIP, logger)
	limitPosts := s.limiter.Middleware(ips.ExtractClientIP, func(r *http.Request) bool {
		return r.Method == http.MethodPost
	})

	handler := headers.Middleware(tracer.Middleware(limitPosts(log.Middleware(logger)(mux))))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.sessions != nil {
		if err := s.sessions.Ping(r.Context()); err != nil {
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
