package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timeouts, windows, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server       ServerConfig
	DB           DBConfig
	CORS         CORSConfig
	Log          LogConfig
	JWT          JWTConfig
	Registration RegistrationConfig
	Gateway      GatewayConfig
	Worker       WorkerConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" required:"true"`
}

// RegistrationConfig holds the seat-hold and waitlist-offer policy.
type RegistrationConfig struct {
	// How long an unpaid registration keeps its seat before the sweep expires it.
	HoldWindow time.Duration `envconfig:"REGISTRATION_HOLD_WINDOW" default:"30m"`
	// How long a promoted waitlist entry may complete registration before the
	// seat is released to the next entry.
	OfferWindow time.Duration `envconfig:"WAITLIST_OFFER_WINDOW" default:"24h"`
}

type GatewayConfig struct {
	// Shared secret for webhook HMAC signature verification.
	WebhookSecret string `envconfig:"GATEWAY_WEBHOOK_SECRET" required:"true"`
	// Sustained webhook deliveries per second before intake throttles.
	WebhookRateLimit float64 `envconfig:"GATEWAY_WEBHOOK_RATE_LIMIT" default:"50"`
	WebhookRateBurst int     `envconfig:"GATEWAY_WEBHOOK_RATE_BURST" default:"100"`
}

type WorkerConfig struct {
	ReconcileInterval time.Duration `envconfig:"WORKER_RECONCILE_INTERVAL" default:"2s"`
	SweepInterval     time.Duration `envconfig:"WORKER_SWEEP_INTERVAL" default:"30s"`
	JobInterval       time.Duration `envconfig:"WORKER_JOB_INTERVAL" default:"2s"`
	BatchSize         int32         `envconfig:"WORKER_BATCH_SIZE" default:"50"`
	MaxAttempts       int32         `envconfig:"WORKER_MAX_ATTEMPTS" default:"8"`
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
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		},
		Log: LogConfig{
			Level:      "error", // Error level only for tests
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
		},
		Registration: RegistrationConfig{
			HoldWindow:  30 * time.Minute,
			OfferWindow: 24 * time.Hour,
		},
		Gateway: GatewayConfig{
			WebhookSecret:    "test-webhook-secret",
			WebhookRateLimit: 1000,
			WebhookRateBurst: 1000,
		},
		Worker: WorkerConfig{
			ReconcileInterval: 100 * time.Millisecond,
			SweepInterval:     time.Second,
			JobInterval:       100 * time.Millisecond,
			BatchSize:         50,
			MaxAttempts:       3,
		},
	}
}
