// Command devserver runs the local recognition service used for development and end-to-end tests.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/viewlulu/internal/config"
	"github.com/example/viewlulu/internal/devserver"
	"github.com/example/viewlulu/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, !cfg.Production())
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := devserver.New(devserver.Options{
		Secret: cfg.JWTSecret,
		Logger: logger,
	})

	server := &http.Server{
		Addr:              cfg.DevServerAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.DevServerAddr)
	if err != nil {
		logger.Fatal("listen failed", zap.String("addr", cfg.DevServerAddr), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("development server listening", zap.String("addr", listener.Addr().String()))
	if err := serve(ctx, server, listener, shutdownGrace, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

const shutdownGrace = 15 * time.Second

// serve runs server on listener until it fails or ctx is done. Once ctx is
// done, in-flight requests get grace to finish before serve returns.
func serve(ctx context.Context, server *http.Server, listener net.Listener, grace time.Duration, logger *zap.Logger) error {
	served := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		served <- err
	}()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("grace", grace))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-served
}
