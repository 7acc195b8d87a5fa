package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides process configuration and the tariff holder to the fx graph.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Provide(NewTariffHolder),
)

// Config holds process configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	// DataFile is the primary ledger document. BackupDir receives dated
	// backup copies and quarantined documents.
	DataFile   string
	BackupDir  string
	TariffFile string

	// DeliveryWebhookURL is the endpoint of the external message-delivery
	// collaborator. Empty means deliveries are logged instead of sent.
	DeliveryWebhookURL string
	DeliveryTimeout    time.Duration
	DeliveryDryRun     bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:            getenv("APP_SERVICE", "waterbill"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		DataFile:           getenv("LEDGER_DATA_FILE", "readings.json"),
		BackupDir:          getenv("LEDGER_BACKUP_DIR", "backups"),
		TariffFile:         getenv("TARIFF_FILE", ""),
		DeliveryWebhookURL: strings.TrimSpace(getenv("DELIVERY_WEBHOOK_URL", "")),
		DeliveryTimeout:    getenvDuration("DELIVERY_TIMEOUT", 10*time.Second),
		DeliveryDryRun:     getenvBool("DELIVERY_DRY_RUN", false),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}
