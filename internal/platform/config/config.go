package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort       = "8080"
	DefaultDogsAPIURL = "https://frontend-take-home-service.fetch.com"
	DefaultAppName    = "dog-match"
)

type Config struct {
	Port    string
	AppName string

	DogsAPIBaseURL string
	DogsAPITimeout time.Duration

	// Orígenes permitidos para CORS (front SPA). Vacío = "*".
	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// Load lee la configuración desde env. Si existe un .env (o los paths indicados),
// se carga antes sin pisar variables ya definidas.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}

	cfg := Config{
		Port:           getEnv("PORT", DefaultPort),
		AppName:        getEnv("APP_NAME", DefaultAppName),
		DogsAPIBaseURL: strings.TrimRight(getEnv("DOGS_API_BASE_URL", DefaultDogsAPIURL), "/"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	timeout, err := time.ParseDuration(getEnv("DOGS_API_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("config: DOGS_API_TIMEOUT: %w", err)
	}
	cfg.DogsAPITimeout = timeout

	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}
