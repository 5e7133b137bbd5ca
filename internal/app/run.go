package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the HTTP sidecar and the engine loop, then blocks until the
// engine finishes or an interrupt arrives.
func (a *App) Run() error {
	defer a.shutdown()

	if a.httpServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.httpServer.Start(); err != nil {
				a.logger.Error("http-server-failed", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
		a.cancel()
	}()

	if err := a.engine.Run(a.ctx); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}
