// Package config provides configuration loading and management for the menu importer.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/telemetry"
)

// EnvPrefix is the prefix of every environment variable read by the importer.
const EnvPrefix = "MENU_IMPORTER"

const (
	// StorageTypeMemory keeps menu items in process memory
	StorageTypeMemory = "memory"

	// StorageTypeSQLite stores menu items in a local SQLite database file
	StorageTypeSQLite = "sqlite"

	// StorageTypePostgres stores menu items in PostgreSQL
	StorageTypePostgres = "postgres"
)

const (
	// DefaultDataDir is where status files and the default SQLite database live
	DefaultDataDir = "./data"

	// DefaultSQLiteFile is the SQLite file name inside the data directory
	DefaultSQLiteFile = "menus.db"

	// DefaultHTTPTimeout bounds the single fetch of an import
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultImportInterval is used for configured menus without an interval
	DefaultImportInterval = time.Hour
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// DataDir holds import status files and, by default, the SQLite database
	DataDir string `yaml:"dataDir,omitempty"`

	Storage    *StorageConfig    `yaml:"storage,omitempty"`
	Database   *DatabaseConfig   `yaml:"database,omitempty"`
	HTTPClient *HTTPClientConfig `yaml:"httpClient,omitempty"`

	// Menus are imported on a schedule by the serve command
	Menus []MenuConfig `yaml:"menus,omitempty"`

	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	// Type is one of memory, sqlite or postgres. Defaults to sqlite.
	Type string `yaml:"type,omitempty"`

	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// SQLiteConfig defines SQLite storage settings
type SQLiteConfig struct {
	// Path to the database file. Defaults to <dataDir>/menus.db.
	Path string `yaml:"path,omitempty"`
}

// HTTPClientConfig defines how remote menu documents are fetched
type HTTPClientConfig struct {
	// Timeout for a single fetch (e.g., "10s")
	Timeout string `yaml:"timeout,omitempty"`

	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig defines when fetches to a failing endpoint are short-circuited
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled"`

	// ConsecutiveFailures trips the breaker. Defaults to 3.
	ConsecutiveFailures uint32 `yaml:"consecutiveFailures,omitempty"`

	// OpenTimeout is how long the breaker stays open (e.g., "1m")
	OpenTimeout string `yaml:"openTimeout,omitempty"`
}

// MenuConfig defines a menu that is imported on a schedule
type MenuConfig struct {
	// Name is the collection name. Derived from the endpoint path when empty.
	Name string `yaml:"name,omitempty"`

	// Endpoint is the JSON:API collection URL
	Endpoint string `yaml:"endpoint"`

	// Interval between imports (e.g., "30m"). Defaults to 1h.
	Interval string `yaml:"interval,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// PasswordEnvVar is consulted when no password file is configured
const PasswordEnvVar = EnvPrefix + "_DATABASE_PASSWORD"

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from MENU_IMPORTER_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(PasswordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", PasswordEnvVar,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// GetConnMaxLifetime parses ConnMaxLifetime, returning 0 when unset
func (d *DatabaseConfig) GetConnMaxLifetime() (time.Duration, error) {
	if d.ConnMaxLifetime == "" {
		return 0, nil
	}
	return time.ParseDuration(d.ConnMaxLifetime)
}

// Default returns the configuration used when no file is given:
// SQLite storage in ./data and no scheduled menus.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir,
		Storage: &StorageConfig{Type: StorageTypeSQLite},
	}
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetDataDir returns the data directory, using DefaultDataDir if not specified
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return DefaultDataDir
	}
	return c.DataDir
}

// GetStorageType returns the storage backend, using sqlite if not specified
func (c *Config) GetStorageType() string {
	if c.Storage == nil || c.Storage.Type == "" {
		return StorageTypeSQLite
	}
	return c.Storage.Type
}

// GetSQLitePath returns the SQLite database file
func (c *Config) GetSQLitePath() string {
	if c.Storage != nil && c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		return c.Storage.SQLite.Path
	}
	return filepath.Join(c.GetDataDir(), DefaultSQLiteFile)
}

// GetHTTPTimeout returns the fetch timeout, using DefaultHTTPTimeout if not specified
func (c *Config) GetHTTPTimeout() time.Duration {
	if c.HTTPClient == nil || c.HTTPClient.Timeout == "" {
		return DefaultHTTPTimeout
	}
	// Validated on load
	d, err := time.ParseDuration(c.HTTPClient.Timeout)
	if err != nil {
		return DefaultHTTPTimeout
	}
	return d
}

// GetOpenTimeout returns how long an open breaker rejects requests
func (b *CircuitBreakerConfig) GetOpenTimeout() time.Duration {
	if b.OpenTimeout == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(b.OpenTimeout)
	if err != nil {
		return time.Minute
	}
	return d
}

// GetConsecutiveFailures returns the failure count that trips the breaker
func (b *CircuitBreakerConfig) GetConsecutiveFailures() uint32 {
	if b.ConsecutiveFailures == 0 {
		return 3
	}
	return b.ConsecutiveFailures
}

// GetName returns the collection name, derived from the endpoint when not set
func (m *MenuConfig) GetName() (string, error) {
	if m.Name != "" {
		return m.Name, nil
	}
	return menu.CollectionNameFromEndpoint(m.Endpoint)
}

// GetInterval returns the import interval, using DefaultImportInterval if not specified
func (m *MenuConfig) GetInterval() time.Duration {
	if m.Interval == "" {
		return DefaultImportInterval
	}
	d, err := time.ParseDuration(m.Interval)
	if err != nil {
		return DefaultImportInterval
	}
	return d
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateHTTPClient(); err != nil {
		return err
	}

	names := make(map[string]bool)
	for i := range c.Menus {
		name, err := validateMenu(&c.Menus[i], i)
		if err != nil {
			return err
		}
		if names[name] {
			return fmt.Errorf("menus[%d]: duplicate menu name '%s'", i, name)
		}
		names[name] = true
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.GetStorageType() {
	case StorageTypeMemory, StorageTypeSQLite:
		return nil
	case StorageTypePostgres:
		if c.Database == nil {
			return errors.New("storage type postgres requires a database section")
		}
		if c.Database.Host == "" || c.Database.Database == "" || c.Database.User == "" {
			return errors.New("database: host, user and database are required")
		}
		if _, err := c.Database.GetConnMaxLifetime(); err != nil {
			return fmt.Errorf("database.connMaxLifetime must be a valid duration: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown storage type '%s' (expected %s, %s or %s)",
			c.GetStorageType(), StorageTypeMemory, StorageTypeSQLite, StorageTypePostgres)
	}
}

func (c *Config) validateHTTPClient() error {
	if c.HTTPClient == nil {
		return nil
	}
	if c.HTTPClient.Timeout != "" {
		d, err := time.ParseDuration(c.HTTPClient.Timeout)
		if err != nil {
			return fmt.Errorf("httpClient.timeout must be a valid duration (e.g., '10s'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("httpClient.timeout must be positive")
		}
	}
	if cb := c.HTTPClient.CircuitBreaker; cb != nil && cb.OpenTimeout != "" {
		if _, err := time.ParseDuration(cb.OpenTimeout); err != nil {
			return fmt.Errorf("httpClient.circuitBreaker.openTimeout must be a valid duration: %w", err)
		}
	}
	return nil
}

// validateMenu validates a single scheduled menu and returns its collection name
func validateMenu(m *MenuConfig, index int) (string, error) {
	prefix := fmt.Sprintf("menus[%d]", index)

	if m.Endpoint == "" {
		return "", fmt.Errorf("%s: endpoint is required", prefix)
	}
	u, err := url.ParseRequestURI(m.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%s: endpoint must be an http or https URL: %s", prefix, m.Endpoint)
	}

	name, err := m.GetName()
	if err != nil {
		return "", fmt.Errorf("%s: %w", prefix, err)
	}

	if m.Interval != "" {
		d, err := time.ParseDuration(m.Interval)
		if err != nil {
			return "", fmt.Errorf("%s (%s): interval must be a valid duration (e.g., '30m', '1h'): %w", prefix, name, err)
		}
		if d <= 0 {
			return "", fmt.Errorf("%s (%s): interval must be positive", prefix, name)
		}
	}

	return name, nil
}
