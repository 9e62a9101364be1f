package domain

// Config holds the complete Egret configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// IntakeMode determines how submitted claims are adjudicated
	// - "sync": adjudicate in the request path, respond with the decision
	// - "async": enqueue on the bus, worker adjudicates and publishes
	IntakeMode IntakeMode `json:"intakeMode"`

	// PolicyPath points to a JSON policy terms document. Empty means
	// the built-in defaults.
	PolicyPath string `json:"policyPath"`

	// FraudRulesPath points to a JSON fraud-indicator rule table.
	// Empty means the built-in defaults.
	FraudRulesPath string `json:"fraudRulesPath"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Advisor settings for the assistive second-opinion evaluator
	Advisor AdvisorConfig `json:"advisor"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// IntakeMode determines the claim intake strategy.
type IntakeMode string

const (
	// ModeSync adjudicates within the HTTP request and returns the
	// decision directly. Use for: clinic front desks, low volume.
	ModeSync IntakeMode = "sync"

	// ModeAsync acknowledges the submission and adjudicates via the
	// bus worker. Use for: batch intake, TPA integrations.
	ModeAsync IntakeMode = "async"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// AdvisorConfig holds settings for the assistive evaluator consulted
// on low-confidence approvals.
type AdvisorConfig struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"` // "openai"
	Model    string `json:"model"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
	Timeout  int    `json:"timeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
)

// DefaultConfig returns a default configuration for Community tier.
// Synchronous intake: submit a claim, get the decision back.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier:       TierCommunity,
		IntakeMode: ModeSync,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./egret.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Advisor: AdvisorConfig{
			Enabled:  false,
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "egret",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
// Pro defaults to async intake through NATS; set EGRET_MODE=sync to
// adjudicate in the request path.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.IntakeMode = ModeAsync
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "egret",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
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
