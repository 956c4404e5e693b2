package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (thresholds, timeouts, etc.)
// -----------------------------------------------------------------------------

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	CORS    CORSConfig
	Log     LogConfig
	JWT     JWTConfig
	Machine MachineConfig
	Device  DeviceConfig
	Push    PushConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" required:"true"`
	Password    string `envconfig:"DB_PASSWORD" required:"true"`
	DBName      string `envconfig:"DB_NAME" required:"true"`
	SSLMode     string `envconfig:"DB_SSL_MODE" default:"disable"`
	ApplySchema bool   `envconfig:"DB_APPLY_SCHEMA" default:"false"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,X-Device-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type JWTConfig struct {
	Secret   string        `envconfig:"JWT_SECRET" required:"true"`
	Duration time.Duration `envconfig:"JWT_DURATION" default:"24h"`
}

// MachineConfig tunes the stock/status engine.
type MachineConfig struct {
	// LowStockRatio is the fraction of capacity under which a machine is
	// considered low on stock. Must stay in (0,1].
	LowStockRatio float64 `envconfig:"MACHINE_LOW_STOCK_RATIO" default:"0.5"`
	// SessionTimeout is the age after which an unfinished refill session is
	// treated as abandoned.
	SessionTimeout time.Duration `envconfig:"MACHINE_SESSION_TIMEOUT" default:"4h"`
	// AlertDedupWindow suppresses repeat alerts of the same kind per machine.
	AlertDedupWindow time.Duration `envconfig:"MACHINE_ALERT_DEDUP_WINDOW" default:"30m"`
	// SnapshotCacheTTL bounds staleness of cached snapshot responses.
	SnapshotCacheTTL time.Duration `envconfig:"MACHINE_SNAPSHOT_CACHE_TTL" default:"5s"`
	// SessionSweepInterval is how often abandoned sessions are scanned for.
	// Zero disables the sweeper.
	SessionSweepInterval time.Duration `envconfig:"MACHINE_SESSION_SWEEP_INTERVAL" default:"10m"`
}

type DeviceConfig struct {
	// RateLimitPerMinute caps telemetry/sale callbacks per device key.
	RateLimitPerMinute int `envconfig:"DEVICE_RATE_LIMIT_PER_MINUTE" default:"60"`
	RateLimitBurst     int `envconfig:"DEVICE_RATE_LIMIT_BURST" default:"10"`
}

type PushConfig struct {
	Enabled         bool   `envconfig:"PUSH_ENABLED" default:"false"`
	VAPIDPublicKey  string `envconfig:"PUSH_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"PUSH_VAPID_PRIVATE_KEY"`
	Subscriber      string `envconfig:"PUSH_SUBSCRIBER" default:"mailto:ops@example.com"`
	Workers         int    `envconfig:"PUSH_WORKERS" default:"4"`
	PollInterval    time.Duration `envconfig:"PUSH_POLL_INTERVAL" default:"15s"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889",
		},
		DB: DBConfig{
			Host:        "localhost",
			Port:        "15433",
			User:        "test",
			Password:    "test",
			DBName:      "test_db",
			SSLMode:     "disable",
			ApplySchema: true,
		},
		Log: LogConfig{
			Level: "error",
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: time.Hour,
		},
		Machine: MachineConfig{
			LowStockRatio:    0.5,
			SessionTimeout:   4 * time.Hour,
			AlertDedupWindow: 30 * time.Minute,
			SnapshotCacheTTL: time.Second,
			// No background sweeping under test; sweeps run explicitly.
			SessionSweepInterval: 0,
		},
		Device: DeviceConfig{
			RateLimitPerMinute: 600,
			RateLimitBurst:     100,
		},
	}
}
