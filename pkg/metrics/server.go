package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the collectors of this package over HTTP while enabled.
type Server struct {
	conf Configuration

	server   *http.Server
	listener net.Listener
	done     chan struct{}
	mutex    sync.Mutex
}

func NewServer(conf Configuration) *Server {
	return &Server{conf: conf}
}

func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (this *Server) Initialize() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.conf.Enable {
		return nil
	}

	ln, err := net.Listen("tcp", this.conf.Listen)
	if err != nil {
		return fmt.Errorf("cannot listen for metrics on %s: %w", this.conf.Listen, err)
	}

	this.listener = ln
	this.server = &http.Server{
		Handler:           NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	this.done = make(chan struct{})

	go func(server *http.Server, done chan struct{}) {
		defer close(done)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).
				With("listen", ln.Addr()).
				Error("Metrics listener stopped unexpectedly.")
		}
	}(this.server, this.done)

	log.With("address", "http://"+ln.Addr().String()+"/metrics").
		Info("Metrics are served.")

	return nil
}

// Addr is the address the listener is bound to or nil if not serving.
func (this *Server) Addr() net.Addr {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	if this.listener == nil {
		return nil
	}
	return this.listener.Addr()
}

func (this *Server) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := this.server.Shutdown(ctx)
	<-this.done
	this.server, this.listener, this.done = nil, nil, nil
	if err != nil {
		return fmt.Errorf("cannot shutdown metrics listener: %w", err)
	}
	return nil
}
