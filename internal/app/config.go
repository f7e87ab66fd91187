package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/crm/internal/domain/product"
)

// Config holds the configuration of the API server and the job runner,
// loadable from environment variables (CRM_ prefix), flags, a local .env
// file or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CRM_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Migrate     bool   `default:"true" usage:"Apply the embedded schema on start-up"`
	Restock     RestockConfig
	CORS        CORSConfig
	Compression CompressionConfig
	Graceful    GracefulConfig
	Cron        CronConfig

	// Once is read by crm-cron only. It is kept at the top level so the
	// flag is --once rather than --cron.once.
	Once string `default:"" usage:"Run the named job once and exit" flag:"once"`
}

// RestockConfig controls updateLowStockProducts.
type RestockConfig struct {
	Level int `default:"10" usage:"Stock level low-stock products are restocked to (at least 10)"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// CompressionConfig controls brotli response compression.
type CompressionConfig struct {
	Level int `default:"5" usage:"Brotli quality level, 0 (fastest) to 11 (smallest)"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// CronConfig controls the scheduled jobs run by crm-cron.
type CronConfig struct {
	Endpoint string        `default:"http://localhost:8080/graphql" usage:"GraphQL endpoint the jobs call"`
	Timeout  time.Duration `default:"1m" usage:"Maximum duration of a single job run"`

	HeartbeatSchedule string `default:"*/5 * * * *"`
	HeartbeatLog      string `default:"/tmp/crm_heartbeat_log.txt"`
	LowStockSchedule  string `default:"0 */12 * * *"`
	LowStockLog       string `default:"/tmp/low_stock_updates_log.txt"`
	ReportSchedule    string `default:"0 6 * * 1"`
	ReportLog         string `default:"/tmp/crm_report_log.txt"`
	RemindersSchedule string `default:"0 8 * * *"`
	RemindersLog      string `default:"/tmp/order_reminders_log.txt"`

	ReportLookback time.Duration `default:"0s" usage:"Only count orders placed within this window; 0 counts all"`
}

// LoadConfig loads a .env file when present, then configuration from
// environment variables, flags and YAML config files, and applies
// platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CRM",
		Files:     []string{"config.yaml", "/etc/crm/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Restock.Level < product.LowStockThreshold {
		return nil, errors.Errorf("restock level %d is below the low-stock threshold %d",
			cfg.Restock.Level, product.LowStockThreshold)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names like DATABASE_URL and PORT to the CRM_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
