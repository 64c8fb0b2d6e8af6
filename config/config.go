package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the process-level settings shared by cmd/reconcile and cmd/server.
type Config struct {
	SuppliersPath string `validate:"required"`
	LinesPath     string `validate:"required"`
	OutputDir     string `validate:"required"`
	DBPath        string `validate:"required"`
	DomainConfig  string // optional JSON file parsed by factory.ParseOptions
	Port          int    `validate:"min=1,max=65535"`
	LogLevel      string `validate:"oneof=trace debug info warn warning error fatal panic"`
}

var validate = validator.New()

// Load reads .env (if present) and the RECON_* environment variables.
// Missing required values are reported only by Validate, so flags can
// still fill them in.
func Load() Config {
	// Load env from .env
	godotenv.Load()

	return Config{
		SuppliersPath: os.Getenv("RECON_SUPPLIERS_PATH"),
		LinesPath:     os.Getenv("RECON_LINES_PATH"),
		OutputDir:     getEnv("RECON_OUTPUT_DIR", "reports"),
		DBPath:        getEnv("RECON_DB_PATH", "reconciler.db"),
		DomainConfig:  os.Getenv("RECON_CONFIG_PATH"),
		Port:          getEnvInt("PORT", 8080),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the struct tags and flattens validator errors into one message.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msg := "invalid configuration:"
			for _, fe := range verrs {
				msg += fmt.Sprintf(" %s(%s)", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("%s", msg)
		}
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
