// Package config loads the configuration surface enumerated in spec §3.4:
// broker connection, database pool, executor tuning, stream engine
// tuning, and per-role rate limits. It generalizes the teacher's
// cmd/main.go loadConfig/applyEnvOverrides pair (a hand-rolled JSON +
// os.ExpandEnv + switch-statement override ladder) into a single
// viper-backed loader: defaults set in code, optionally overridden by a
// config file, finally overridden by environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Broker holds the §3.4 "Broker connection" surface.
type Broker struct {
	URL             string        `mapstructure:"url"`
	Namespace       string        `mapstructure:"namespace"`
	AckWait         time.Duration `mapstructure:"ack_wait"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	ReconnectJitter time.Duration `mapstructure:"reconnect_jitter"`
	MaxPingsOut     int           `mapstructure:"max_pings_out"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
}

// Database holds the §3.4 "Database pool" surface.
type Database struct {
	URL              string        `mapstructure:"url"`
	PoolSize         int32         `mapstructure:"pool_size"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// Executor holds the §3.4 "Executor" surface.
type Executor struct {
	MaxInFlight    int `mapstructure:"max_in_flight"`
	BatchSize      int `mapstructure:"batch_size"`
	PoolReserve    int `mapstructure:"pool_reserve"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts"`
}

// Stream holds the §3.4 "Stream engine" surface.
type Stream struct {
	HistoricalChunkSize int           `mapstructure:"historical_chunk_size"`
	LiveBufferDepth     int           `mapstructure:"live_buffer_depth"`
	DefaultDelivery     string        `mapstructure:"default_delivery"`
	PublishTimeout      time.Duration `mapstructure:"publish_timeout"`
}

// RoleLimit holds the §3.4 "Rate limits per role" surface for a single role.
type RoleLimit struct {
	Name                  string   `mapstructure:"name"`
	SubscriptionLimit     int      `mapstructure:"subscription_limit"`
	RequestsPerMinute     int      `mapstructure:"requests_per_minute"`
	HistoricalLimitBlocks int64    `mapstructure:"historical_limit_blocks"`
	Scopes                []string `mapstructure:"scopes"`
}

// WebSocket holds the subscriber-gateway resource policy (§4.I.3).
type WebSocket struct {
	MaxFrameBytes     int64         `mapstructure:"max_frame_bytes"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ClientTimeout     time.Duration `mapstructure:"client_timeout"`
	ChannelCapacity   int           `mapstructure:"channel_capacity"`
}

// HTTP holds the REST/WS listener surface.
type HTTP struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Auth holds the JWT_SECRET surface spec §6 enumerates for the JWT
// issuance collaborator. JWT issuance itself is a spec §1 Non-goal (see
// DESIGN.md) — this package only carries the value through so the named
// env var parses cleanly; nothing in this repo signs or verifies a JWT.
type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Config is the root configuration object for both cmd/streamer and
// cmd/consumer; each binary only reads the sections it needs.
type Config struct {
	Broker      Broker               `mapstructure:"broker"`
	Database    Database             `mapstructure:"database"`
	Executor    Executor             `mapstructure:"executor"`
	Stream      Stream               `mapstructure:"stream"`
	WebSocket   WebSocket            `mapstructure:"websocket"`
	HTTP        HTTP                 `mapstructure:"http"`
	Auth        Auth                 `mapstructure:"auth"`
	Roles       map[string]RoleLimit `mapstructure:"roles"`
	UseMetrics  bool                 `mapstructure:"use_metrics"`
	Debug       bool                 `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.url", "nats://localhost:4222")
	v.SetDefault("broker.namespace", "cs")
	v.SetDefault("broker.ack_wait", 30*time.Second)
	v.SetDefault("broker.max_reconnects", 10)
	v.SetDefault("broker.reconnect_wait", time.Second)
	v.SetDefault("broker.reconnect_jitter", 100*time.Millisecond)
	v.SetDefault("broker.max_pings_out", 3)
	v.SetDefault("broker.ping_interval", 20*time.Second)

	v.SetDefault("database.url", "postgres://localhost:5432/chainstream")
	v.SetDefault("database.pool_size", 37) // matches executor default (32) + reserve (5)
	v.SetDefault("database.statement_timeout", 30*time.Second)

	v.SetDefault("executor.max_in_flight", 32)
	v.SetDefault("executor.batch_size", 100)
	v.SetDefault("executor.pool_reserve", 5)
	v.SetDefault("executor.retry_max_attempts", 5)

	v.SetDefault("stream.historical_chunk_size", 100)
	v.SetDefault("stream.live_buffer_depth", 100)
	v.SetDefault("stream.default_delivery", "new")
	v.SetDefault("stream.publish_timeout", 5*time.Second)

	v.SetDefault("websocket.max_frame_bytes", 8*1024*1024)
	v.SetDefault("websocket.heartbeat_interval", 5*time.Second)
	v.SetDefault("websocket.client_timeout", 10*time.Second)
	v.SetDefault("websocket.channel_capacity", 100)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("use_metrics", true)
	v.SetDefault("debug", false)
}

// Load reads configuration from (in ascending priority): in-code defaults,
// an optional config file at path, a local .env file (if present), and
// environment variables. Environment variables use the teacher's
// underscore-joined naming (e.g. NATS_URL, DATABASE_URL) bound explicitly
// below, mirroring §6's enumerated env vars.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best-effort; local dev convenience only

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if len(cfg.Roles) == 0 {
		cfg.Roles = defaultRoles()
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindEnv binds the §6 enumerated environment variables explicitly, since
// their names don't follow the BROKER_URL-style auto-derivation from the
// mapstructure keys.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("broker.url", "NATS_URL")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("use_metrics", "USE_METRICS")
}

func defaultRoles() map[string]RoleLimit {
	return map[string]RoleLimit{
		"admin": {
			Name:                  "admin",
			SubscriptionLimit:     0, // 0 == unlimited, see apikey.Role
			RequestsPerMinute:     0,
			HistoricalLimitBlocks: 0,
			Scopes:                []string{">"},
		},
		"standard": {
			Name:                  "standard",
			SubscriptionLimit:     10,
			RequestsPerMinute:     120,
			HistoricalLimitBlocks: 600,
			Scopes:                []string{"blocks.>", "transactions.>", "receipts.>", "inputs.>", "outputs.>", "utxos.>"},
		},
	}
}

func validate(cfg *Config) error {
	if cfg.Executor.MaxInFlight <= 0 {
		return fmt.Errorf("config: executor.max_in_flight must be positive")
	}
	if cfg.Database.PoolSize <= int32(cfg.Executor.PoolReserve) {
		return fmt.Errorf("config: database.pool_size must exceed executor.pool_reserve")
	}
	if cfg.Stream.HistoricalChunkSize <= 0 {
		return fmt.Errorf("config: stream.historical_chunk_size must be positive")
	}
	return nil
}

// EffectiveMaxInFlight applies the §4.G.1 rule: max_tasks = min(configured,
// pool_size - reserve).
func (c *Config) EffectiveMaxInFlight() int {
	cap := int(c.Database.PoolSize) - c.Executor.PoolReserve
	if c.Executor.MaxInFlight < cap {
		return c.Executor.MaxInFlight
	}
	return cap
}
