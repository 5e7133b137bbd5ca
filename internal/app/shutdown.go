package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// shutdown drains the HTTP server and closes storage.
func (a *App) shutdown() {
	a.cancel()
	a.healthChecker.SetReady(false)

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Warn("http-shutdown-failed", zap.Error(err))
		}
		cancel()
	}

	a.wg.Wait()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("storage-close-failed", zap.Error(err))
		}
	}

	a.logger.Info("shutdown-complete")
}
