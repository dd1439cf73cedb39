package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when no path is given and CONFIG_FILE is unset
	DefaultConfigPath = "config.yaml"

	configPathEnv = "CONFIG_FILE"

	// MaxPageLimit is the largest page a listing may request
	MaxPageLimit = 1000
)

// DatabaseConfig holds all database configuration
type DatabaseConfig struct {
	Driver         string         `yaml:"driver" env:"SENSOR_DB_DRIVER"`
	MySQL          MySQLConfig    `yaml:"mysql"`
	PostgreSQL     PostgresConfig `yaml:"postgres"`
	SQLite         SQLiteConfig   `yaml:"sqlite"`
	ConnectionPool PoolConfig     `yaml:"connection_pool"`
}

// MySQLConfig holds MySQL specific configuration
type MySQLConfig struct {
	Host      string `yaml:"host" env:"SENSOR_MYSQL_HOST"`
	Port      int    `yaml:"port" env:"SENSOR_MYSQL_PORT"`
	User      string `yaml:"user" env:"SENSOR_MYSQL_USER"`
	Password  string `yaml:"password" env:"SENSOR_MYSQL_PASSWORD"`
	DBName    string `yaml:"dbname" env:"SENSOR_MYSQL_DBNAME"`
	Charset   string `yaml:"charset"`
	ParseTime bool   `yaml:"parse_time"`
	Loc       string `yaml:"loc"`
}

// PostgresConfig holds PostgreSQL specific configuration
type PostgresConfig struct {
	Host     string `yaml:"host" env:"SENSOR_POSTGRES_HOST"`
	Port     int    `yaml:"port" env:"SENSOR_POSTGRES_PORT"`
	User     string `yaml:"user" env:"SENSOR_POSTGRES_USER"`
	Password string `yaml:"password" env:"SENSOR_POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"SENSOR_POSTGRES_DBNAME"`
	SSLMode  string `yaml:"sslmode"`
	TimeZone string `yaml:"timezone"`
}

// SQLiteConfig holds SQLite specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SENSOR_SQLITE_PATH"`
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxIdleConns    int `yaml:"max_idle_conns"`
	MaxOpenConns    int `yaml:"max_open_conns"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime"`
}

// MigrationConfig holds migration specific configuration
type MigrationConfig struct {
	AutoMigrate    bool   `yaml:"auto_migrate" env:"SENSOR_AUTO_MIGRATE"`
	MigrationTable string `yaml:"migration_table"`
	Directory      string `yaml:"directory" env:"SENSOR_MIGRATION_DIR"`
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	LogFile      string `yaml:"log_file" env:"LOG_FILE"`
	LogToConsole bool   `yaml:"log_to_console" env:"LOG_TO_CONSOLE"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL"`
	Encoding     string `yaml:"encoding" env:"LOG_ENCODING"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address         string        `yaml:"address" env:"SENSOR_HTTP_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// IngestConfig controls how new readings are accepted
type IngestConfig struct {
	// UniqueSensorID rejects a reading when the sensor already has one stored.
	UniqueSensorID bool `yaml:"unique_sensor_id" env:"SENSOR_UNIQUE_SENSOR_ID"`
}

// ScannerConfig holds CSV import configuration
type ScannerConfig struct {
	Workers   int `yaml:"workers" env:"SENSOR_SCAN_WORKERS"`
	BatchSize int `yaml:"batch_size" env:"SENSOR_SCAN_BATCH_SIZE"`
}

// Config holds the complete application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Migration MigrationConfig `yaml:"migration"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Scanner   ScannerConfig   `yaml:"scanner"`
}

// Default returns a configuration pointing at a local SQLite file
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "./sensordata.db"},
			ConnectionPool: PoolConfig{
				MaxIdleConns:    5,
				MaxOpenConns:    10,
				ConnMaxLifetime: 3600,
			},
		},
		Migration: MigrationConfig{
			AutoMigrate:    true,
			MigrationTable: "schema_migrations",
			Directory:      "migrations",
		},
		Logging: LoggingConfig{
			LogFile:      "result.log",
			LogToConsole: true,
			LogLevel:     "info",
			Encoding:     "console",
		},
		Server: ServerConfig{
			Address:         ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Scanner: ScannerConfig{
			BatchSize: 1000,
		},
	}
}

// Load loads configuration from the specified YAML file.
// An empty path falls back to CONFIG_FILE, then to config.yaml; only the
// implicit default may be missing, in which case defaults are used.
// Environment variables (optionally from .env) override file values.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	explicit := true
	if configPath == "" {
		configPath = os.Getenv(configPathEnv)
	}
	if configPath == "" {
		configPath = DefaultConfigPath
		explicit = false
	}

	config := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	// Set default values for logging if not specified
	if config.Logging.LogLevel == "" {
		config.Logging.LogLevel = "info"
	}
	if config.Scanner.BatchSize <= 0 {
		config.Scanner.BatchSize = 1000
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql":
		if c.Database.MySQL.Host == "" {
			return fmt.Errorf("mysql host is required")
		}
		if c.Database.MySQL.User == "" {
			return fmt.Errorf("mysql user is required")
		}
		if c.Database.MySQL.DBName == "" {
			return fmt.Errorf("mysql database name is required")
		}
	case "postgres":
		if c.Database.PostgreSQL.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Database.PostgreSQL.User == "" {
			return fmt.Errorf("postgres user is required")
		}
		if c.Database.PostgreSQL.DBName == "" {
			return fmt.Errorf("postgres database name is required")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if strings.TrimSpace(c.Server.Address) == "" {
		return fmt.Errorf("server address is required")
	}

	switch strings.ToLower(c.Logging.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", c.Logging.LogLevel)
	}

	if c.Scanner.Workers < 0 {
		return fmt.Errorf("scanner workers must not be negative")
	}

	return nil
}

// GetDSN returns the database connection string based on the configured driver
func (c *Config) GetDSN() string {
	switch c.Database.Driver {
	case "mysql":
		mysql := c.Database.MySQL
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
			mysql.User, mysql.Password, mysql.Host, mysql.Port, mysql.DBName,
			mysql.Charset, mysql.ParseTime, mysql.Loc)
		return dsn
	case "postgres":
		pg := c.Database.PostgreSQL
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode, pg.TimeZone)
		return dsn
	case "sqlite":
		return c.Database.SQLite.Path
	default:
		return ""
	}
}
