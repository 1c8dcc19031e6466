package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/mdlayher/vsock"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudx-io/opendsp/catalog"
	"github.com/cloudx-io/opendsp/config"
	"github.com/cloudx-io/opendsp/metrics"
	"github.com/cloudx-io/opendsp/reqcontext"
	"github.com/cloudx-io/opendsp/txn"
	"github.com/cloudx-io/opendsp/validation"
)

// Server is the bid endpoint in front of the transaction engine. At most maxWorkers
// requests are processed at once; the rest are turned away immediately.
type Server struct {
	catalog  catalog.Catalog
	engine   *txn.Engine
	recorder metrics.Recorder
	gatherer prometheus.Gatherer
	timeouts reqcontext.Timeouts

	slots     chan struct{}
	startedAt time.Time

	responseCheck ResponseChecker
}

// ResponseChecker validates an outgoing bid response before it is encoded.
type ResponseChecker interface {
	ValidateResponse(resp *openrtb2.BidResponse) validation.Report
}

func NewServer(cat catalog.Catalog, engine *txn.Engine, recorder metrics.Recorder, gatherer prometheus.Gatherer, timeouts reqcontext.Timeouts, maxWorkers int) *Server {
	if recorder == nil {
		recorder = metrics.NilRecorder{}
	}
	return &Server{
		catalog:   cat,
		engine:    engine,
		recorder:  recorder,
		gatherer:  gatherer,
		timeouts:  timeouts,
		slots:     make(chan struct{}, maxWorkers),
		startedAt: time.Now(),
	}
}

// CheckResponses makes the bid handler validate every outgoing bid response with checker;
// a response that fails is logged and replaced by a no-bid.
func (s *Server) CheckResponses(checker ResponseChecker) {
	s.responseCheck = checker
}

// Handler returns the routed, gzip-capable HTTP handler.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.POST("/openrtb2/bid", s.limit(s.handleBid))
	router.GET("/status", s.handleStatus)
	if s.gatherer != nil {
		router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{DisableCompression: true}))
	}
	return gziphandler.GzipHandler(router)
}

// limit acquires a worker slot for the duration of next, rejecting with 503 when the pool
// is full.
func (s *Server) limit(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		default:
			glog.Warningf("No workers available, rejecting request (pool full)")
			s.recorder.RecordRejectedRequest(metrics.RejectPoolFull)
			http.Error(w, "Server busy", http.StatusServiceUnavailable)
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				glog.Errorf("Panic recovered in bid handler: %v", rec)
				http.Error(w, "Internal error", http.StatusInternalServerError)
			}
		}()
		next(w, r, ps)
	}
}

// Listen opens an AF_VSOCK listener when vsockPort is set and a TCP listener otherwise.
func Listen(cfg config.Server) (net.Listener, error) {
	if cfg.VsockPort != 0 {
		listener, err := vsock.Listen(cfg.VsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		glog.Infof("Listening on vsock port %d", cfg.VsockPort)
		return listener, nil
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create tcp listener: %w", err)
	}
	glog.Infof("Listening on tcp port %d", cfg.Port)
	return listener, nil
}

// Serve runs the HTTP server on listener until ctx is cancelled, then drains in-flight
// requests for up to cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, listener net.Listener, cfg config.Server) error {
	httpServer := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	glog.Infof("Worker pool initialized with %d max concurrent workers", cap(s.slots))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	glog.Infof("Shutting down, draining for up to %s", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
