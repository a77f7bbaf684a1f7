// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"flavorchart/internal/logger"
)

var (
	dataDirectory string
	logsDirectory string
	allowedOrigin string
)

//
// --- Utility Helpers ---
//

// GetEnvBasedSetting looks up SETTING_DEV or SETTING_PROD depending on
// ENVIRONMENT (dev when unset).
func GetEnvBasedSetting(base string) string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	if v := os.Getenv(fmt.Sprintf("%s_%s", base, strings.ToUpper(env))); v != "" {
		return v
	}
	return os.Getenv(base)
}

// LogCurrentEnvironment logs which environment is running.
func LogCurrentEnvironment() {
	if os.Getenv("ENVIRONMENT") == "prod" {
		logger.LogInfo("Running in production environment")
	} else {
		logger.LogInfo("Running in development environment")
	}
}

//
// --- Loaders ---
//

// LoadEnv reads the .env file if one is present.
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Could not determine working directory: %v", err)
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found in %s. Using system environment variables.", wd)
	} else {
		log.Printf("Loaded environment variables from .env file in %s", wd)
	}
}

// ConfigurePaths sets up folders and derived paths.
func ConfigurePaths() {
	wd, err := os.Getwd()
	if err != nil {
		logger.LogFatal("Failed to get working directory: %v", err)
	}

	dataDirectory = GetEnvBasedSetting("DATA_DIRECTORY")
	if dataDirectory == "" {
		dataDirectory = filepath.Join(wd, "data")
	}

	logsDirectory = GetEnvBasedSetting("LOGS_DIRECTORY")
	if logsDirectory == "" {
		logsDirectory = filepath.Join(wd, "logs")
	}

	allowedOrigin = GetEnvBasedSetting("ALLOWED_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "*"
		logger.LogWarn("ALLOWED_ORIGIN not set, using '*' (allow all origins)")
	}
}

// LoggerConfig returns the logger configuration from environment.
func LoggerConfig() logger.Config {
	dir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if dir == "" {
		dir = "./logs"
	}
	return logger.Config{Directory: dir}
}

//
// --- Getters (exported) ---
//

// ServerAddress builds the listen address from environment variables.
func ServerAddress() string {
	host := os.Getenv("SERVER_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "5052"
	}
	return host + ":" + port
}

// DataDirectory is where the state database lives.
func DataDirectory() string {
	return dataDirectory
}

// StateDBPath is the sqlite file holding the persisted board state.
func StateDBPath() string {
	return filepath.Join(dataDirectory, "board.db")
}

// LogsDirectory is where daily log files are written.
func LogsDirectory() string {
	return logsDirectory
}

// AllowedOrigin is the CORS origin for the static frontend.
func AllowedOrigin() string {
	return allowedOrigin
}

// ReferenceCatalogURL is the remote reference list endpoint; empty means no
// remote source is configured.
func ReferenceCatalogURL() string {
	return GetEnvBasedSetting("REFERENCE_CATALOG_URL")
}

// ReferenceCatalogFile is a local reference list file used when no URL is
// configured (or as a dev convenience).
func ReferenceCatalogFile() string {
	return GetEnvBasedSetting("REFERENCE_CATALOG_FILE")
}

// AttributeColumns returns the allergen column override from
// ATTRIBUTE_COLUMNS (comma-separated, order significant). Nil when unset;
// callers fall back to the built-in default list.
func AttributeColumns() []string {
	raw := os.Getenv("ATTRIBUTE_COLUMNS")
	if raw == "" {
		return nil
	}
	var cols []string
	for _, col := range strings.Split(raw, ",") {
		if col = strings.TrimSpace(col); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

// ShopName is the display name stamped on exports.
func ShopName() string {
	return os.Getenv("SHOP_NAME")
}

// ShareBaseURL is the public URL share links point at, without the query
// string.
func ShareBaseURL() string {
	if v := GetEnvBasedSetting("SHARE_BASE_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://" + ServerAddress()
}
