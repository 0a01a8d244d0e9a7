// Package www exposes a small chi-based HTTP surface for observing a
// running session from outside the process, grounded on the teacher's
// restful/server.go (graceful start/stop) and router.go (chi wiring).
package www

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"logur.dev/logur"

	"gitlab.com/silenteer-oss/wampc/session"
)

// Status is the JSON body served at GET /status.
type Status struct {
	State         string `json:"state"`
	SessionID     uint64 `json:"sessionId,omitempty"`
	Connected     bool   `json:"connected"`
	Registrations int    `json:"liveRegistrations"`
	Subscriptions int    `json:"liveSubscriptions"`
}

// DiagnosticsServer serves session status over HTTP, separate from the
// WAMP transport itself so it survives a transport disconnect.
type DiagnosticsServer struct {
	port    string
	handler http.Handler
	logger  logur.Logger
	stop    chan interface{}
}

// NewDiagnosticsServer wires a chi router exposing /status and /health
// for the given session, following the teacher's DefaultHandlers
// (health_check.go) pattern of always-on base routes.
func NewDiagnosticsServer(port string, sess *session.Session, logger logur.Logger) *DiagnosticsServer {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"UP"}`))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		sessionID, connected := sess.SessionID()
		stats := sess.Stats()
		status := Status{
			State:         sess.State().String(),
			SessionID:     uint64(sessionID),
			Connected:     connected,
			Registrations: stats.LiveRegistrations,
			Subscriptions: stats.LiveSubscriptions,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error(fmt.Sprintf("status encode error: %+v", err))
		}
	})

	return &DiagnosticsServer{port: port, handler: r, logger: logger, stop: make(chan interface{})}
}

// Start listens until Stop is called or the process receives
// SIGINT/SIGTERM, mirroring the teacher's Server.start shutdown hook.
func (d *DiagnosticsServer) Start() error {
	if d.port == "" {
		return errors.New("diagnostics: port not set")
	}

	srv := &http.Server{Addr: ":" + d.port, Handler: d.handler}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error(fmt.Sprintf("diagnostics server error: %+v", err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
	case <-d.stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Stop requests a graceful shutdown from outside the signal handler.
func (d *DiagnosticsServer) Stop() {
	close(d.stop)
}
