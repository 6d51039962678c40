package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/pkg/logger"
)

var (
	configDir string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "household-ledger",
	Short: "Household Ledger",
	Long:  `Monthly household expenses, categories and credit-card reconciliation.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads config.yml from path, lets ENV_* variables override any
// key and validates the result. A missing config file is not an error when
// the environment carries everything.
func loadConfig(path string) (*internal.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	logger.Init(cfg.Environment, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that the
// config file leaves out.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http_server.port", 8080)
	v.SetDefault("http_server.allowed_origins", "http://localhost:5173")
	v.SetDefault("http_server.read_header_timeout", 5*time.Second)
	v.SetDefault("http_server.read_timeout", 15*time.Second)
	v.SetDefault("http_server.idle_timeout", 60*time.Second)
	v.SetDefault("http_server.write_timeout", 0)
	v.SetDefault("http_server.validate_request", false)

	v.SetDefault("store.backend", internal.StoreBackendSQL)
	v.SetDefault("store.operation_timeout", 10*time.Second)
	v.SetDefault("store.delete_fan_out", 8)

	v.SetDefault("database.driver", internal.DatabaseDriverPostgres)
	v.SetDefault("database.source", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.credentials_json", "")

	v.SetDefault("security.auth_provider", internal.AuthProviderJWT)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.access_token_duration", 24*time.Hour)

	v.SetDefault("messaging.enabled", false)
	v.SetDefault("messaging.amqp_url", "")
	v.SetDefault("messaging.exchange", "household-ledger.changes")

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "auto")
}

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory holding config.yml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading config")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
