package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvOverlay loads path (typically ".env") into the process
// environment, overriding any existing values, for local dev credentials.
// A missing file is not an error. No CLI command calls it.
func LoadEnvOverlay(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Overload(path)
}

// GetEnvironment returns the current environment from AGORA_ENV, falling
// back to ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("AGORA_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether GetEnvironment is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}
