package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/app"
	"github.com/km-arc/go-inject/framework/container"
	kernel "github.com/km-arc/go-inject/framework/app"
)

func main() {
	application, err := kernel.New(".env")
	if err != nil {
		zap.NewExample().Fatal("loading application", zap.Error(err))
	}
	logger := application.Logger

	if err := application.Register(&app.GreetingServiceProvider{}); err != nil {
		logger.Fatal("registering providers", zap.Error(err))
	}
	if err := application.Boot(); err != nil {
		logger.Fatal("booting application", zap.Error(err), zap.String("kind", container.Kind(err)))
	}

	if application.IsDebug() {
		plan, err := application.Injector().Plan(container.KeyOf[*app.GreetingHandler]())
		if err == nil {
			plan.Print(os.Stdout)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- application.Run() }()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
