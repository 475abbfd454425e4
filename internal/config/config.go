package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the lab activity service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string

	// Ground-truth lab constants the session is seeded with.
	LabMass          float64
	LabInitialVolume float64
	LabFinalVolume   float64
	DensityTolerance float64

	SessionTTL time.Duration

	AIProvider   string
	OpenAIAPIKey string
	OpenAIModel  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MINLAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "MinLab API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("lab.mass", 157.5)
	v.SetDefault("lab.initial_volume", 50.0)
	v.SetDefault("lab.final_volume", 95.0)
	v.SetDefault("lab.density_tolerance", 0.05)
	v.SetDefault("session.ttl", "720h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("openai.model", "gpt-4o-mini")

	ttlString := v.GetString("session.ttl")
	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		LabMass:          v.GetFloat64("lab.mass"),
		LabInitialVolume: v.GetFloat64("lab.initial_volume"),
		LabFinalVolume:   v.GetFloat64("lab.final_volume"),
		DensityTolerance: v.GetFloat64("lab.density_tolerance"),
		SessionTTL:       ttl,
		AIProvider:       strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		OpenAIModel:      v.GetString("openai.model"),
	}

	if cfg.LabMass <= 0 {
		return Config{}, fmt.Errorf("lab mass must be positive")
	}
	if cfg.LabInitialVolume < 0 || cfg.LabFinalVolume <= cfg.LabInitialVolume {
		return Config{}, fmt.Errorf("lab volumes must satisfy 0 <= initial < final")
	}
	if cfg.DensityTolerance <= 0 {
		return Config{}, fmt.Errorf("density tolerance must be positive")
	}

	return cfg, nil
}
