package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the JSON config file looked up in the config directory.
const ConfigFileName = "playsim.cfg.json"

// SimConfig holds simulation clock and randomness settings
type SimConfig struct {
	SpeedMultiplier float64 `json:"speedMultiplier" mapstructure:"speedMultiplier"`
	Seed            int64   `json:"seed" mapstructure:"seed"` // 0 seeds from the clock
	MaxTicks        int     `json:"maxTicks" mapstructure:"maxTicks"`
	Realtime        bool    `json:"realtime" mapstructure:"realtime"`
	Coverage        string  `json:"coverage" mapstructure:"coverage"` // empty draws one per play
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	PlaysFile      string `json:"playsFile" mapstructure:"playsFile"`
}

// SQLiteConfig holds in-memory SQLite backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	Addr        string
	CORSOrigins []string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; commands that
// run without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./playsimlogs")

	viper.SetDefault("sim.speedMultiplier", 1.0)
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("sim.maxTicks", 5000)
	viper.SetDefault("sim.realtime", false)
	viper.SetDefault("sim.coverage", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.memory.playsFile", "./plays.json")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./playsim.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "playsim")

	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.prefix", "playsim")

	viper.SetDefault("stream.url", "ws://localhost:8080/api/v1/ingest")
	viper.SetDefault("stream.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "playsim-metrics")
	viper.SetDefault("influx.bucket", "plays")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "playsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("api.addr", ":8080")
	viper.SetDefault("api.corsOrigins", []string{"*"})

	viper.SetDefault("monitor.interval", "10s")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimConfig returns the simulation settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		SpeedMultiplier: viper.GetFloat64("sim.speedMultiplier"),
		Seed:            viper.GetInt64("sim.seed"),
		MaxTicks:        viper.GetInt("sim.maxTicks"),
		Realtime:        viper.GetBool("sim.realtime"),
		Coverage:        viper.GetString("sim.coverage"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
			PlaysFile:      viper.GetString("storage.memory.playsFile"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetAPIConfig returns the HTTP API settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		Addr:        viper.GetString("api.addr"),
		CORSOrigins: viper.GetStringSlice("api.corsOrigins"),
	}
}
