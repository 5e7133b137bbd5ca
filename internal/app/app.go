// Package app wires configuration into a running engine with its HTTP
// sidecar and owns the process lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/quantfish/crossarb/internal/broker"
	"github.com/quantfish/crossarb/internal/engine"
	"github.com/quantfish/crossarb/internal/storage"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/healthprobe"
	"github.com/quantfish/crossarb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	engine        *engine.Engine
	book          *broker.Paper
	store         storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options beyond the environment config.
type Options struct {
	// FixtureA/FixtureB point at JSON market fixtures for the two
	// venues. Empty paths yield an empty source for that venue.
	FixtureA string
	FixtureB string
	// Iterations, when > 0, overrides ENGINE_ITERATIONS.
	Iterations int
	// DisableHTTP skips the metrics/health sidecar (one-shot commands).
	DisableHTTP bool
}
