// Package health exposes the liveness endpoint. It shares nothing with the
// rest of the process beyond the address it listens on; hosting platforms
// probe it to keep the bot alive.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"riftbot/pkg/logx"
)

// Server is a minimal liveness HTTP responder.
type Server struct {
	log  logx.Logger
	srv  *http.Server
	addr string
}

func NewServer(addr string, log logx.Logger) *Server {
	if addr == "" {
		addr = ":8080"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleOK)
	mux.HandleFunc("/", handleOK)
	return &Server{
		log:  log,
		addr: addr,
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func handleOK(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		s.log.Info("health endpoint listening", logx.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("health endpoint failed", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	_ = s.srv.Shutdown(ctx)
}
