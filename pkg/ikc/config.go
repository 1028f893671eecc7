package ikc

import (
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages algorithm configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Algorithm parameters
	v.SetDefault("algorithm.min_k", 0)
	v.SetDefault("algorithm.true_modularity", false)

	// Performance parameters
	v.SetDefault("performance.parallel", true)
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for algorithm parameters
func (c *Config) MinK() uint32 { return uint32(c.v.GetInt("algorithm.min_k")) }

// TrueModularity selects the real modularity formula instead of the constant
// positive sentinel. Off by default, so the modularity gate never rejects.
func (c *Config) TrueModularity() bool { return c.v.GetBool("algorithm.true_modularity") }

func (c *Config) Parallel() bool  { return c.v.GetBool("performance.parallel") }
func (c *Config) NumWorkers() int { return c.v.GetInt("performance.num_workers") }

func (c *Config) LogLevel() string     { return c.v.GetString("logging.level") }
func (c *Config) EnableProgress() bool { return c.v.GetBool("logging.enable_progress") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "ikc").Logger()
}
