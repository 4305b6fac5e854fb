package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends understood by the server.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	StoreBackend      string        `mapstructure:"STORE_BACKEND"`
	MongoURI          string        `mapstructure:"MONGO_URI"`
	MongoDatabase     string        `mapstructure:"MONGO_DATABASE"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`
	HospitalTokenTTL  time.Duration `mapstructure:"HOSPITAL_TOKEN_TTL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	AIAPIURL          string        `mapstructure:"AI_API_URL"`
	AIAPIKey          string        `mapstructure:"AI_API_KEY"`
	AIModel           string        `mapstructure:"AI_MODEL"`
	AITimeout         time.Duration `mapstructure:"AI_TIMEOUT"`
	StaleBookingAfter time.Duration `mapstructure:"STALE_BOOKING_AFTER"`
	JobsEnabled       bool          `mapstructure:"JOBS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "STORE_BACKEND", "MONGO_URI", "MONGO_DATABASE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "TOKEN_TTL", "HOSPITAL_TOKEN_TTL", "REDIS_URL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"AI_API_URL", "AI_API_KEY", "AI_MODEL", "AI_TIMEOUT",
	"STALE_BOOKING_AFTER", "JOBS_ENABLED",
}

// Load reads configuration from the environment. Values from a .env file
// are expected to have been exported into the process environment already.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "4000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "healthbridge")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("HOSPITAL_TOKEN_TTL", "168h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("AI_API_URL", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("AI_MODEL", "llama-3.1-8b-instant")
	v.SetDefault("AI_TIMEOUT", "30s")
	v.SetDefault("STALE_BOOKING_AFTER", "2h")
	v.SetDefault("JOBS_ENABLED", true)

	// Bind explicitly so Unmarshal sees keys that only exist in the environment.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SigningKey returns the HMAC key for credentials. Development servers fall
// back to a fixed key so that a bare checkout can run.
func (c *Config) SigningKey() []byte {
	if c.JWTSecret == "" && c.IsDev() {
		return []byte("healthbridge-development-secret")
	}
	return []byte(c.JWTSecret)
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND is %q", BackendMongo)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q, %q or %q, got %q",
			BackendMongo, BackendPostgres, BackendMemory, c.StoreBackend)
	}

	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required outside development (ENV=%q)", c.Env)
	}
	if c.TokenTTL <= 0 || c.HospitalTokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL and HOSPITAL_TOKEN_TTL must be positive")
	}
	if c.StaleBookingAfter <= 0 {
		return fmt.Errorf("STALE_BOOKING_AFTER must be positive")
	}
	return nil
}
