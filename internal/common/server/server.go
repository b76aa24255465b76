package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

type ShutdownHook func(ctx context.Context) error

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then stops
// accepting connections, waits for in-flight requests and runs hooks in order.
func Run(ctx context.Context, srv *http.Server, cfg ServerConfig, log *logger.Logger, serviceName string, hooks ...ShutdownHook) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return Serve(ctx, srv, ln, cfg, log, serviceName, hooks...)
}

func Serve(ctx context.Context, srv *http.Server, ln net.Listener, cfg ServerConfig, log *logger.Logger, serviceName string, hooks ...ShutdownHook) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("%s service listening on %s", serviceName, ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("%s service failed: %w", serviceName, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infof("shutting down %s service...", serviceName)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	srv.SetKeepAlivesEnabled(false)

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service forced to shutdown: %v", serviceName, err)
		errs = append(errs, err)
	}

	if len(hooks) > 0 {
		drainCtx, drainCancel := context.WithTimeout(shutdownCtx, cfg.DrainTimeout)
		defer drainCancel()

		log.Infof("%s service: executing shutdown hooks", serviceName)
		for i, hook := range hooks {
			if err := hook(drainCtx); err != nil {
				log.Errorf("%s service: shutdown hook %d failed: %v", serviceName, i, err)
				errs = append(errs, err)
			}
		}
	}

	if len(errs) == 0 {
		log.Infof("%s service stopped gracefully", serviceName)
	}
	return errors.Join(errs...)
}
