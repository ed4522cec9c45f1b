// Package config implements the YAML-based configuration surface spec
// §6 enumerates: LocalDiskMount.writable, DataMount.schemaCacheTTL, and
// the transaction wrapper's streamingEnabled/maxRequestBody, plus the
// pool and logging sections needed to boot the system. Grounded on the
// teacher's internal/config/config.go: same shape (nested structs,
// yaml.v2, LoadFromFile/LoadFromEnv/SaveToFile/Validate), narrowed to
// this system's actual recognized options rather than the teacher's
// object-storage-specific tuning knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration is the complete application configuration.
type Configuration struct {
	Global         GlobalConfig         `yaml:"global"`
	Pool           PoolConfig           `yaml:"pool"`
	LocalDiskMount LocalDiskMountConfig `yaml:"local_disk_mount"`
	DataMount      DataMountConfig      `yaml:"data_mount"`
	Wrapper        WrapperConfig        `yaml:"wrapper"`
}

// GlobalConfig holds process-wide settings.
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"`
}

// PoolConfig configures the database/sql connection pool the
// transaction wrapper draws connections from.
type PoolConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// LocalDiskMountConfig is spec §6's LocalDiskMount option: {writable: bool}.
type LocalDiskMountConfig struct {
	Writable bool `yaml:"writable"`
}

// DataMountConfig is spec §6's DataMount option. SchemaCacheTTL is a
// time.Duration given as a Go duration string (for example "30s"); the
// value is not read as a count of seconds.
type DataMountConfig struct {
	SchemaCacheTTL time.Duration `yaml:"schema_cache_ttl"`
}

// WrapperConfig is spec §6's transaction wrapper options:
// {streamingEnabled: bool}, {maxRequestBody: bytes}.
type WrapperConfig struct {
	StreamingEnabled bool  `yaml:"streaming_enabled"`
	MaxRequestBody   int64 `yaml:"max_request_body"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			LogFile:     "",
			MetricsPort: 9090,
		},
		Pool: PoolConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		LocalDiskMount: LocalDiskMountConfig{
			Writable: false,
		},
		DataMount: DataMountConfig{
			SchemaCacheTTL: 5 * time.Minute,
		},
		Wrapper: WrapperConfig{
			StreamingEnabled: true,
			MaxRequestBody:   10 * 1024 * 1024,
		},
	}
}

// LoadFromFile loads configuration from a YAML file, overlaying onto
// whatever c already holds (typically NewDefault()'s result).
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv overlays recognized environment variables onto c.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("VFSQL_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("VFSQL_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}
	if val := os.Getenv("VFSQL_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}
	if val := os.Getenv("VFSQL_POOL_DSN"); val != "" {
		c.Pool.DSN = val
	}
	if val := os.Getenv("VFSQL_POOL_MAX_OPEN_CONNS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Pool.MaxOpenConns = n
		}
	}
	if val := os.Getenv("VFSQL_LOCAL_DISK_WRITABLE"); val != "" {
		c.LocalDiskMount.Writable = strings.EqualFold(val, "true")
	}
	if val := os.Getenv("VFSQL_DATA_MOUNT_SCHEMA_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.DataMount.SchemaCacheTTL = d
		}
	}
	if val := os.Getenv("VFSQL_WRAPPER_STREAMING_ENABLED"); val != "" {
		c.Wrapper.StreamingEnabled = strings.EqualFold(val, "true")
	}
	if val := os.Getenv("VFSQL_WRAPPER_MAX_REQUEST_BODY"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Wrapper.MaxRequestBody = n
		}
	}
	return nil
}

// SaveToFile writes c as YAML, creating parent directories as needed.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for obviously broken values.
func (c *Configuration) Validate() error {
	if c.Pool.MaxOpenConns <= 0 {
		return fmt.Errorf("pool.max_open_conns must be greater than 0")
	}
	if c.Pool.MaxIdleConns < 0 {
		return fmt.Errorf("pool.max_idle_conns must not be negative")
	}
	if c.Wrapper.MaxRequestBody <= 0 {
		return fmt.Errorf("wrapper.max_request_body must be greater than 0")
	}

	validLogLevels := []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	ok := false
	for _, level := range validLogLevels {
		if strings.EqualFold(c.Global.LogLevel, level) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)", c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}
