// Package config loads process configuration from defaults, an optional
// YAML config file, and PROSOL_* environment variables, in increasing
// precedence. A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig configures the HTTP tool surface.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// JobsConfig configures the job manager.
type JobsConfig struct {
	DataDir     string        `mapstructure:"data_dir"`
	Workers     int           `mapstructure:"workers"`
	QueueDepth  int           `mapstructure:"queue_depth"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
	LaunchRate  float64       `mapstructure:"launch_rate"`
}

// PipelineConfig locates the external protein-sol pipeline checkout.
type PipelineConfig struct {
	Dir string `mapstructure:"dir"`
}

// setDefaults registers every known key with its default value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "console")

	v.SetDefault("jobs.data_dir", "./data")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_depth", 1024)
	v.SetDefault("jobs.exec_timeout", 5*time.Minute)
	v.SetDefault("jobs.launch_rate", 0.0)

	v.SetDefault("pipeline.dir", "./repo/protein-sol")
}

// Load builds the configuration. configFile may be empty, in which case only
// defaults, .env, and environment variables apply.
func Load(configFile string) (*Config, error) {
	// Best effort: a missing .env file is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PROSOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
