package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/sgm/store"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("sgm.server")

// SgmServer exposes the evaluation service over Connect (HTTP) and gRPC.
// Both transports share one EvalService and one worker pool.
type SgmServer struct {
	worker *VMWorker
	svc    *EvalService
	mux    *http.ServeMux

	grpcServer *grpc.Server

	mu         sync.Mutex
	httpServer *http.Server
}

// ServerOption configures an SgmServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	cache   *store.ContentStore
	timeout time.Duration
	workers int
}

// WithCache compiles through the given content store.
func WithCache(cache *store.ContentStore) ServerOption {
	return func(c *serverConfig) { c.cache = cache }
}

// WithTimeout bounds the running time of each evaluation.
func WithTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.timeout = d }
}

// WithWorkers sets how many programs may run at once.
func WithWorkers(n int) ServerOption {
	return func(c *serverConfig) { c.workers = n }
}

// New creates a server. Nothing listens until ListenAndServe or Serve.
func New(opts ...ServerOption) *SgmServer {
	cfg := &serverConfig{
		timeout: 10 * time.Second,
		workers: 4,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewVMWorker(cfg.workers)
	svc := NewEvalService(worker, cfg.cache, cfg.timeout)

	s := &SgmServer{
		worker: worker,
		svc:    svc,
		mux:    http.NewServeMux(),
	}
	path, handler := NewEvaluationServiceHandler(svc)
	s.mux.Handle(path, handler)
	s.grpcServer = NewGRPCServer(svc)
	return s
}

// Service returns the shared evaluation service.
func (s *SgmServer) Service() *EvalService {
	return s.svc
}

// Handler returns the Connect HTTP handler.
func (s *SgmServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves Connect on addr and gRPC on grpcAddr until one of
// them fails or Stop is called. An empty grpcAddr disables gRPC.
func (s *SgmServer) ListenAndServe(addr, grpcAddr string) error {
	httpLis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	var grpcLis net.Listener
	if grpcAddr != "" {
		grpcLis, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			httpLis.Close()
			return err
		}
	}
	return s.Serve(httpLis, grpcLis)
}

// Serve is ListenAndServe over existing listeners. grpcLis may be nil.
func (s *SgmServer) Serve(httpLis, grpcLis net.Listener) error {
	hs := &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.httpServer = hs
	s.mu.Unlock()

	log.Noticef("sgm server listening on %s", httpLis.Addr())
	log.Noticef("  Connect (HTTP/CBOR): http://%s%s", httpLis.Addr(), EvaluateProcedure)

	errs := make(chan error, 2)
	go func() { errs <- hs.Serve(httpLis) }()
	if grpcLis != nil {
		log.Noticef("  gRPC (CBOR):         grpc://%s", grpcLis.Addr())
		go func() { errs <- s.grpcServer.Serve(grpcLis) }()
	}

	err := <-errs
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop shuts down both transports and the worker pool.
func (s *SgmServer) Stop() {
	s.mu.Lock()
	hs := s.httpServer
	s.mu.Unlock()
	if hs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(ctx); err != nil {
			log.Warningf("http shutdown: %s", err)
		}
	}
	s.grpcServer.GracefulStop()
	s.worker.Stop()
}
