package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration. It is immutable after load:
// the engine receives it by value and never writes it back.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venues
	VenueAName    string
	VenueBName    string
	DualVenueMode bool

	// Engine
	RefreshInterval time.Duration
	Iterations      int // 0 means run until cancelled
	ReportDir       string
	FetchTimeout    time.Duration

	// Filter (pre-screen before detection)
	MinMarketLiquidity float64
	MinMarketVolume    float64

	// Detectors
	Detectors DetectorConfig

	// Risk
	Risk RiskConfig

	// Broker
	Broker BrokerConfig

	// Matcher
	SimilarityMode      string // "lexical" or "semantic"
	SimilarityThreshold float64
	RelatedWindowDays   int
	VerifyMode          string // "off", "fail_open", "fail_closed"

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// DetectorConfig holds per-detector thresholds and enable flags.
type DetectorConfig struct {
	ParityEnabled   bool
	ParityThreshold float64

	ExclusiveSumEnabled   bool
	ExclusiveSumTolerance float64

	LadderEnabled   bool
	LadderTolerance float64

	DuplicateEnabled            bool
	DuplicatePriceDiffThreshold float64

	TimeLagEnabled            bool
	TimeLagPersistenceMinutes float64
	TimeLagJumpThreshold      float64

	ConsistencyEnabled   bool
	ConsistencyTolerance float64

	CompositeEnabled bool

	// Modeled execution costs shared by the detectors' net-edge math.
	FeeBPS      float64
	SlippageBPS float64
}

// RiskConfig holds the risk-gate thresholds, one field per rule.
type RiskConfig struct {
	AllowShorts            bool // false disables DUPLICATE globally
	MinNetEdge             float64
	MinGrossEdge           float64 // 0 disables the gross-edge rule
	MinBuyPrice            float64
	MinLiquidityMultiple   float64
	MinExpiryHours         float64
	MaxOpenPositions       int
	MaxAllocationPerMarket float64 // fraction of total equity
}

// BrokerConfig holds the paper-broker fill parameters.
type BrokerConfig struct {
	InitialCash   float64
	FeeBPS        float64
	SlippageBPS   float64
	DepthFraction float64
}

// LoadFromEnv loads configuration from environment variables with safe
// defaults (no live I/O: console storage, fixture-friendly engine).
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		VenueAName:    getEnvOrDefault("VENUE_A_NAME", "alpha"),
		VenueBName:    getEnvOrDefault("VENUE_B_NAME", "beta"),
		DualVenueMode: getBoolOrDefault("DUAL_VENUE_MODE", false),

		RefreshInterval: getDurationOrDefault("ENGINE_REFRESH_INTERVAL", 60*time.Second),
		Iterations:      getIntOrDefault("ENGINE_ITERATIONS", 0),
		ReportDir:       getEnvOrDefault("ENGINE_REPORT_DIR", "reports"),
		FetchTimeout:    getDurationOrDefault("ENGINE_FETCH_TIMEOUT", 10*time.Second),

		MinMarketLiquidity: getFloat64OrDefault("FILTER_MIN_LIQUIDITY", 0),
		MinMarketVolume:    getFloat64OrDefault("FILTER_MIN_VOLUME", 0),

		Detectors: DetectorConfig{
			ParityEnabled:   getBoolOrDefault("DETECTOR_PARITY_ENABLED", true),
			ParityThreshold: getFloat64OrDefault("DETECTOR_PARITY_THRESHOLD", 0.99),

			ExclusiveSumEnabled:   getBoolOrDefault("DETECTOR_EXCLUSIVE_SUM_ENABLED", true),
			ExclusiveSumTolerance: getFloat64OrDefault("DETECTOR_EXCLUSIVE_SUM_TOLERANCE", 0.02),

			LadderEnabled:   getBoolOrDefault("DETECTOR_LADDER_ENABLED", true),
			LadderTolerance: getFloat64OrDefault("DETECTOR_LADDER_TOLERANCE", 0.01),

			DuplicateEnabled:            getBoolOrDefault("DETECTOR_DUPLICATE_ENABLED", true),
			DuplicatePriceDiffThreshold: getFloat64OrDefault("DETECTOR_DUPLICATE_PRICE_DIFF", 0.05),

			TimeLagEnabled:            getBoolOrDefault("DETECTOR_TIMELAG_ENABLED", true),
			TimeLagPersistenceMinutes: getFloat64OrDefault("DETECTOR_TIMELAG_PERSISTENCE_MINUTES", 5),
			TimeLagJumpThreshold:      getFloat64OrDefault("DETECTOR_TIMELAG_JUMP_THRESHOLD", 0.05),

			ConsistencyEnabled:   getBoolOrDefault("DETECTOR_CONSISTENCY_ENABLED", true),
			ConsistencyTolerance: getFloat64OrDefault("DETECTOR_CONSISTENCY_TOLERANCE", 0.03),

			CompositeEnabled: getBoolOrDefault("DETECTOR_COMPOSITE_ENABLED", true),

			FeeBPS:      getFloat64OrDefault("DETECTOR_FEE_BPS", 10),
			SlippageBPS: getFloat64OrDefault("DETECTOR_SLIPPAGE_BPS", 20),
		},

		Risk: RiskConfig{
			AllowShorts:            getBoolOrDefault("RISK_ALLOW_SHORTS", false),
			MinNetEdge:             getFloat64OrDefault("RISK_MIN_NET_EDGE", 0.01),
			MinGrossEdge:           getFloat64OrDefault("RISK_MIN_GROSS_EDGE", 0),
			MinBuyPrice:            getFloat64OrDefault("RISK_MIN_BUY_PRICE", 0.02),
			MinLiquidityMultiple:   getFloat64OrDefault("RISK_MIN_LIQUIDITY_MULTIPLE", 5),
			MinExpiryHours:         getFloat64OrDefault("RISK_MIN_EXPIRY_HOURS", 12),
			MaxOpenPositions:       getIntOrDefault("RISK_MAX_OPEN_POSITIONS", 20),
			MaxAllocationPerMarket: getFloat64OrDefault("RISK_MAX_ALLOCATION_PER_MARKET", 0.10),
		},

		Broker: BrokerConfig{
			InitialCash:   getFloat64OrDefault("BROKER_INITIAL_CASH", 10000),
			FeeBPS:        getFloat64OrDefault("BROKER_FEE_BPS", 10),
			SlippageBPS:   getFloat64OrDefault("BROKER_SLIPPAGE_BPS", 20),
			DepthFraction: getFloat64OrDefault("BROKER_DEPTH_FRACTION", 0.10),
		},

		SimilarityMode:      getEnvOrDefault("MATCHER_SIMILARITY_MODE", "lexical"),
		SimilarityThreshold: getFloat64OrDefault("MATCHER_SIMILARITY_THRESHOLD", 0.85),
		RelatedWindowDays:   getIntOrDefault("MATCHER_RELATED_WINDOW_DAYS", 7),
		VerifyMode:          getEnvOrDefault("MATCHER_VERIFY_MODE", "off"),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "crossarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", ""),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "crossarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. A failure here is
// fatal at startup; nothing else in the system treats config as fallible.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("ENGINE_REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}

	if c.Iterations < 0 {
		return fmt.Errorf("ENGINE_ITERATIONS cannot be negative, got %d", c.Iterations)
	}

	if c.FetchTimeout <= 0 || c.FetchTimeout > 10*time.Second {
		return fmt.Errorf("ENGINE_FETCH_TIMEOUT must be in (0, 10s], got %s", c.FetchTimeout)
	}

	if c.Detectors.ParityThreshold <= 0 || c.Detectors.ParityThreshold >= 1.0 {
		return fmt.Errorf("DETECTOR_PARITY_THRESHOLD must be between 0 and 1.0, got %f", c.Detectors.ParityThreshold)
	}

	if c.Detectors.ExclusiveSumTolerance < 0 {
		return fmt.Errorf("DETECTOR_EXCLUSIVE_SUM_TOLERANCE cannot be negative, got %f", c.Detectors.ExclusiveSumTolerance)
	}

	if c.Broker.InitialCash <= 0 {
		return fmt.Errorf("BROKER_INITIAL_CASH must be positive, got %f", c.Broker.InitialCash)
	}

	if c.Broker.DepthFraction <= 0 || c.Broker.DepthFraction > 1.0 {
		return fmt.Errorf("BROKER_DEPTH_FRACTION must be in (0, 1.0], got %f", c.Broker.DepthFraction)
	}

	if c.Risk.MaxAllocationPerMarket <= 0 || c.Risk.MaxAllocationPerMarket > 1.0 {
		return fmt.Errorf("RISK_MAX_ALLOCATION_PER_MARKET must be in (0, 1.0], got %f", c.Risk.MaxAllocationPerMarket)
	}

	if c.SimilarityMode != "lexical" && c.SimilarityMode != "semantic" {
		return fmt.Errorf("MATCHER_SIMILARITY_MODE must be 'lexical' or 'semantic', got %q", c.SimilarityMode)
	}

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("MATCHER_SIMILARITY_THRESHOLD must be in [0, 1.0], got %f", c.SimilarityThreshold)
	}

	switch c.VerifyMode {
	case "off", "fail_open", "fail_closed":
	default:
		return fmt.Errorf("MATCHER_VERIFY_MODE must be 'off', 'fail_open' or 'fail_closed', got %q", c.VerifyMode)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
