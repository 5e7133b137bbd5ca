package app

import (
	"context"
	"fmt"

	"github.com/quantfish/crossarb/internal/broker"
	"github.com/quantfish/crossarb/internal/detectors"
	"github.com/quantfish/crossarb/internal/engine"
	"github.com/quantfish/crossarb/internal/matcher"
	"github.com/quantfish/crossarb/internal/report"
	"github.com/quantfish/crossarb/internal/risk"
	"github.com/quantfish/crossarb/internal/source"
	"github.com/quantfish/crossarb/internal/storage"
	"github.com/quantfish/crossarb/internal/validator"
	"github.com/quantfish/crossarb/pkg/cache"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/healthprobe"
	"github.com/quantfish/crossarb/pkg/httpserver"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// New wires the full application from config and options.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Iterations > 0 {
		// Config is otherwise immutable; the CLI override happens before
		// anything reads it.
		cfg.Iterations = opts.Iterations
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}

	sources, err := buildSources(cfg, opts)
	if err != nil {
		cancel()
		return nil, err
	}

	store, err := storage.New(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating storage: %w", err)
	}
	a.store = store

	reporter, err := report.NewReporter(cfg.ReportDir, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating reporter: %w", err)
	}

	m, err := buildMatcher(cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	a.book = broker.NewPaper(cfg.Broker, logger)

	var strictAB *validator.Validator
	if cfg.DualVenueMode {
		strictAB = validator.New(nil, logger)
	}

	a.engine = engine.New(engine.Options{
		Config:    cfg,
		Sources:   sources,
		Detectors: buildDetectors(cfg, m, logger),
		TimeLag:   buildTimeLag(cfg, m, logger),
		Validator: strictAB,
		Gate:      risk.NewGate(cfg.Risk, logger),
		Broker:    a.book,
		Notifier:  source.NewLogNotifier(logger),
		Reporter:  reporter,
		Trace:     report.NewTraceLog(cfg.ReportDir, logger),
		Store:     store,
		Logger:    logger,
		OnReady:   func() { a.healthChecker.SetReady(true) },
	})

	if !opts.DisableHTTP {
		a.httpServer = httpserver.New(&httpserver.Config{
			Port:          cfg.HTTPPort,
			Logger:        logger,
			HealthChecker: a.healthChecker,
			Book:          a.book,
		})
	}

	return a, nil
}

func buildSources(cfg *config.Config, opts *Options) ([]source.MarketSource, error) {
	metaA := source.Metadata{Venue: types.VenueA, Name: cfg.VenueAName}
	metaB := source.Metadata{Venue: types.VenueB, Name: cfg.VenueBName}

	srcA, err := fixtureOrEmpty(metaA, opts.FixtureA)
	if err != nil {
		return nil, err
	}
	srcB, err := fixtureOrEmpty(metaB, opts.FixtureB)
	if err != nil {
		return nil, err
	}
	return []source.MarketSource{srcA, srcB}, nil
}

func fixtureOrEmpty(meta source.Metadata, path string) (source.MarketSource, error) {
	if path == "" {
		return source.NewStatic(meta), nil
	}
	src, err := source.NewFromFile(meta, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s fixture: %w", meta.Name, err)
	}
	return src, nil
}

func buildMatcher(cfg *config.Config, logger *zap.Logger) (*matcher.Matcher, error) {
	var sim matcher.Similarity = matcher.Lexical{}
	if cfg.SimilarityMode == "semantic" {
		// No embedding backend ships with the core; the semantic scorer
		// degrades to lexical until one is configured.
		embedCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
			NumCounters: 100_000,
			MaxCost:     10_000,
			BufferItems: 64,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedding cache: %w", err)
		}
		sim = matcher.NewSemantic(nil, embedCache, logger)
	}

	return matcher.New(sim, matcher.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		RelatedWindowDays:   cfg.RelatedWindowDays,
	}, logger), nil
}

func buildDetectors(cfg *config.Config, m *matcher.Matcher, logger *zap.Logger) []detectors.Detector {
	dc := cfg.Detectors

	var out []detectors.Detector
	if dc.ParityEnabled {
		out = append(out, detectors.NewParity(dc, logger))
	}
	if dc.ExclusiveSumEnabled {
		out = append(out, detectors.NewExclusiveSum(dc, logger))
	}
	if dc.LadderEnabled {
		out = append(out, detectors.NewLadder(dc, logger))
	}
	if dc.DuplicateEnabled {
		out = append(out, detectors.NewDuplicate(dc, m, logger))
	}
	if dc.ConsistencyEnabled {
		out = append(out, detectors.NewConsistency(dc, logger))
	}
	if dc.CompositeEnabled {
		out = append(out, detectors.NewComposite(dc, logger))
	}
	return out
}

func buildTimeLag(cfg *config.Config, m *matcher.Matcher, logger *zap.Logger) *detectors.TimeLag {
	if !cfg.Detectors.TimeLagEnabled {
		return nil
	}
	return detectors.NewTimeLag(cfg.Detectors, m, logger)
}
