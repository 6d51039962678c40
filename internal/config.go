package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	StoreBackendSQL       = "sql"
	StoreBackendFirestore = "firestore"

	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Store         StoreConfig         `mapstructure:"store"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Firebase      FirebaseConfig      `mapstructure:"firebase"`
	Security      SecurityConfig      `mapstructure:"security"`
	Messaging     MessagingConfig     `mapstructure:"messaging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	// WriteTimeout is zero for SSE streams unless set explicitly.
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ValidateRequest bool          `mapstructure:"validate_request"`
}

type StoreConfig struct {
	Backend          string        `mapstructure:"backend"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	DeleteFanOut     int           `mapstructure:"delete_fan_out"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type SecurityConfig struct {
	AuthProvider        string        `mapstructure:"auth_provider"`
	JWTSecret           string        `mapstructure:"jwt_secret"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
}

type MessagingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	switch c.Store.Backend {
	case StoreBackendSQL:
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("database config: %v", err))
		}
	case StoreBackendFirestore:
		if err := c.Firebase.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("firebase config: %v", err))
		}
	default:
		errs = append(errs, fmt.Sprintf("store config: unknown backend %q", c.Store.Backend))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}
	if c.Security.AuthProvider == AuthProviderFirebase && c.Store.Backend != StoreBackendFirestore {
		if err := c.Firebase.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("firebase config: %v", err))
		}
	}

	if err := c.Messaging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("messaging config: %v", err))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, "observability config: metrics path must start with /")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout > 0 && c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Driver != DatabaseDriverPostgres && c.Driver != DatabaseDriverSQLite {
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *FirebaseConfig) Validate() error {
	if c.ProjectID == "" {
		return errors.New("project_id is required")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	switch c.AuthProvider {
	case AuthProviderJWT:
		if len(c.JWTSecret) < 32 {
			return errors.New("jwt_secret must be at least 32 characters")
		}
	case AuthProviderFirebase:
	default:
		return fmt.Errorf("unknown auth_provider %q", c.AuthProvider)
	}
	return nil
}

func (c *MessagingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.AMQPURL == "" {
		return errors.New("amqp_url is required when messaging is enabled")
	}
	if c.Exchange == "" {
		return errors.New("exchange is required when messaging is enabled")
	}
	return nil
}
