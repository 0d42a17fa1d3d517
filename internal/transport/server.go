// Package transport wires the HTTP/WebSocket surface together: route
// registration via gorilla/mux, access logging via gorilla/handlers, and
// the Server lifecycle (Start/ListenAndServe/Stop), mirroring the
// teacher's engine.Server split between game and network concerns.
package transport

import (
	"context"
	_ "embed"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"cubesnake.io/internal/room"
	"cubesnake.io/internal/wire"
)

//go:embed index.html
var indexHTML []byte

// Version is stamped into /healthz; cmd/cubesnake-server sets it at
// startup from its own -ldflags-stamped version.
var Version = "dev"

// Server wraps a RoomManager with an HTTP server exposing the WebSocket
// endpoint, a health check, and a static debug page.
type Server struct {
	manager    *room.RoomManager
	log        *logrus.Entry
	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a Server bound to manager; it does not start
// listening until Start or ListenAndServe is called.
func NewServer(manager *room.RoomManager, log *logrus.Entry) *Server {
	return &Server{manager: manager, log: log}
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		wire.ServeWS(s.manager, s.log, w, req)
	})

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})

	return handlers.CombinedLoggingHandler(s.log.Logger.Out, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": Version,
		"rooms":   s.manager.RoomCount(),
	})
}

// Start begins serving in a background goroutine and returns once the
// listener is bound, without blocking on Serve.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.WithField("addr", addr).Info("listening")
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server stopped")
		}
	}()
	return nil
}

// ListenAndServe starts the server and blocks until it stops or errors.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.log.WithField("addr", addr).Info("listening")
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the server down, waiting up to the given context
// deadline for in-flight requests. Upgraded WebSocket connections are
// hijacked, so Shutdown neither waits for nor closes them, and running
// room tick drivers are not stopped.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
