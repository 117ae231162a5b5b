// Package config loads pipeline configuration from flags, environment variables, and an
// optional config file via viper (spec.md §8 Configuration surface).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of knobs the partition driver and its jobs need for one run.
type Config struct {
	ProviderURI      string
	OutputDir        string
	ConnectionString string

	StartBlock int64
	EndBlock   int64
	BatchSize  int
	MaxWorkers int

	SkipGethTraces bool
	PartitionSize  int64
}

// Load reads configuration from (in increasing priority) defaults, an optional config
// file, and ETHETL_-prefixed environment variables. Flags, when supplied by the CLI
// layer, are bound by the caller before Load runs.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	v.SetEnvPrefix("ethetl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("batch-size", 100)
	v.SetDefault("max-workers", 5)
	v.SetDefault("partition-size", 1000)
	v.SetDefault("skip-geth-traces", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		ProviderURI:      v.GetString("provider-uri"),
		OutputDir:        v.GetString("output-dir"),
		ConnectionString: v.GetString("connection-string"),
		StartBlock:       v.GetInt64("start-block"),
		EndBlock:         v.GetInt64("end-block"),
		BatchSize:        v.GetInt("batch-size"),
		MaxWorkers:       v.GetInt("max-workers"),
		SkipGethTraces:   v.GetBool("skip-geth-traces"),
		PartitionSize:    v.GetInt64("partition-size"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.ProviderURI == "" {
		return fmt.Errorf("provider-uri is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output-dir is required")
	}
	if c.EndBlock < c.StartBlock {
		return fmt.Errorf("end-block (%d) must be >= start-block (%d)", c.EndBlock, c.StartBlock)
	}
	if c.PartitionSize <= 0 {
		return fmt.Errorf("partition-size must be > 0")
	}
	return nil
}
