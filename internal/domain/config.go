package domain

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines infrastructure selection
	Tier Tier `json:"tier"`

	// Component configurations
	Cache     CacheConfig     `json:"cache"`
	EventBus  EventBusConfig  `json:"eventBus"`
	Narrative NarrativeConfig `json:"narrative"`
	Pipeline  PipelineConfig  `json:"pipeline"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// NarrativeConfig configures the narrative generation collaborator.
type NarrativeConfig struct {
	// Enabled selects the Anthropic generator; when false (or the API key is
	// empty) the deterministic template generator is used exclusively.
	Enabled bool `json:"enabled"`

	APIKey    string `json:"-"`
	Model     string `json:"model"`
	MaxTokens int    `json:"maxTokens"`

	// TimeoutSecs bounds the single I/O suspension point of the pipeline.
	// On timeout or failure the template fallback is substituted.
	TimeoutSecs int `json:"timeoutSecs"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	Version string `json:"version"`

	// GuidanceTTLSecs is the cache lifetime for retrieved guidance chunks.
	GuidanceTTLSecs int `json:"guidanceTtlSecs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with in-process channels + LRU cache.
	TierCommunity Tier = "community"

	// TierPro is the paid tier with NATS + Redis.
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
		},
		Tier: TierCommunity,
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Narrative: NarrativeConfig{
			Enabled:     false,
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   3000,
			TimeoutSecs: 60,
		},
		Pipeline: PipelineConfig{
			Version:         "harrier-1.0",
			GuidanceTTLSecs: 3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       300,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
