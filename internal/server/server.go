// Package server runs HTTP listeners until the context ends and drains them.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/config"
	httphandler "github.com/kjstillabower/weather-prediction-demo/internal/http"
	"github.com/kjstillabower/weather-prediction-demo/internal/lifecycle"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
)

// Shutdown bounds the drain after the context ends.
type Shutdown struct {
	Timeout               time.Duration
	InFlightTimeout       time.Duration
	InFlightCheckInterval time.Duration
}

// ShutdownFromConfig copies the shutdown settings.
func ShutdownFromConfig(cfg *config.Config) Shutdown {
	return Shutdown{
		Timeout:               cfg.ShutdownTimeout,
		InFlightTimeout:       cfg.ShutdownInFlightTimeout,
		InFlightCheckInterval: cfg.ShutdownInFlightCheckInterval,
	}
}

// Listener pairs a server with a pre-bound listener. A nil Listener makes Run listen on Server.Addr.
type Listener struct {
	Name     string
	Server   *http.Server
	Listener net.Listener
	// Started is called once the listener is bound, with its address.
	Started func(addr net.Addr)
}

// New returns an http.Server with the read and write timeouts every listener uses.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Run serves every listener until ctx is done or one of them fails, then marks the
// process as shutting down, stops accepting connections and waits for in-flight requests.
// It returns the first serve error, if any.
func Run(ctx context.Context, logger *zap.Logger, listeners []Listener, sd Shutdown) error {
	for i := range listeners {
		if listeners[i].Listener != nil {
			continue
		}
		ln, err := net.Listen("tcp", listeners[i].Server.Addr)
		if err != nil {
			for _, l := range listeners[:i] {
				_ = l.Listener.Close()
			}
			return err
		}
		listeners[i].Listener = ln
	}

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		if l.Started != nil {
			l.Started(l.Listener.Addr())
		}
		logger.Info("server starting", zap.String("name", l.Name), zap.String("addr", l.Listener.Addr().String()))
		go func(l Listener) {
			if err := l.Server.Serve(l.Listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(l)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("graceful shutdown triggered")
	case serveErr = <-errCh:
		logger.Error("server failed", zap.Error(serveErr))
	}

	lifecycle.BeginShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), orDefault(sd.Timeout, 10*time.Second))
	defer cancel()
	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l Listener) {
			defer wg.Done()
			if err := l.Server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown", zap.String("name", l.Name), zap.Error(err))
			}
		}(l)
	}
	wg.Wait()

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), orDefault(sd.InFlightTimeout, 5*time.Second))
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, sd.InFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	return serveErr
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
