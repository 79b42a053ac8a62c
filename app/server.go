package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/toolgate/observe"
)

// ContextWithShutdownSignal returns a context cancelled on SIGINT or SIGTERM.
func ContextWithShutdownSignal(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// serve runs handler on addr until ctx ends, then drains in-flight requests
// for at most shutdownTimeout.
func serve(ctx context.Context, logger observe.Logger, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", addr, err)
	}
	return serveListener(ctx, logger, ln, handler, shutdownTimeout)
}

func serveListener(ctx context.Context, logger observe.Logger, ln net.Listener, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening", observe.Field{Key: "addr", Value: ln.Addr().String()})
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logger.Info(drainCtx, "http server draining", observe.Field{Key: "timeout_ms", Value: shutdownTimeout.Milliseconds()})
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}
