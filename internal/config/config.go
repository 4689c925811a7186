package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	ListenAddr string

	// DataDir is the primary drop directory for playback-log CSV files.
	// FallbackDataDir is listed instead when DataDir contains no CSVs.
	DataDir         string
	FallbackDataDir string

	// VideosDir holds source media referenced by witness export;
	// WitnessDir and ContractsDir receive generated artifacts.
	VideosDir    string
	WitnessDir   string
	ContractsDir string

	// ClientsFile is the JSON document backing the client registry.
	ClientsFile string

	// PricePerClient is the fixed monthly price used by the revenue
	// estimate. It is a modeling constant, not a billing rate card.
	PricePerClient float64

	// WitnessCount is the default number of placeholder witness
	// artifacts produced per export; WitnessDuration is their nominal
	// length in seconds.
	WitnessCount    int
	WitnessDuration int
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		ListenAddr:      getenv("APP_LISTEN_ADDR", ":8080"),
		DataDir:         getenv("APP_DATA_DIR", "data"),
		FallbackDataDir: getenv("APP_DATA_FALLBACK_DIR", "."),
		VideosDir:       getenv("APP_VIDEOS_DIR", "videos"),
		WitnessDir:      getenv("APP_WITNESS_DIR", "testigos"),
		ContractsDir:    getenv("APP_CONTRACTS_DIR", "contratos"),
		ClientsFile:     getenv("APP_CLIENTS_FILE", "clientes_config.json"),
		PricePerClient:  15000,
		WitnessCount:    3,
		WitnessDuration: 10,
	}

	if v := os.Getenv("APP_PRICE_PER_CLIENT"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil && price >= 0 {
			cfg.PricePerClient = price
		}
	}
	if v := os.Getenv("APP_WITNESS_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WitnessCount = n
		}
	}
	if v := os.Getenv("APP_WITNESS_DURATION_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WitnessDuration = n
		}
	}

	return cfg
}

// EnsureDirs creates the working directories the service writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.VideosDir, c.WitnessDir, c.ContractsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// GetLogLevel maps LOG_LEVEL to a logrus level, defaulting to info.
func GetLogLevel() logrus.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
