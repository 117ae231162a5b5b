package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadAppliesDefaults(t *testing.T) {
	v := viper.New()
	v.Set("provider-uri", "http://localhost:8545")
	v.Set("output-dir", "/tmp/out")
	v.Set("start-block", int64(0))
	v.Set("end-block", int64(10))

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("expected default batch-size 100, got %d", cfg.BatchSize)
	}
	if cfg.MaxWorkers != 5 {
		t.Fatalf("expected default max-workers 5, got %d", cfg.MaxWorkers)
	}
	if cfg.PartitionSize != 1000 {
		t.Fatalf("expected default partition-size 1000, got %d", cfg.PartitionSize)
	}
	if cfg.SkipGethTraces {
		t.Fatalf("expected skip-geth-traces to default false")
	}
}

func TestLoadRejectsMissingProviderURI(t *testing.T) {
	v := viper.New()
	v.Set("output-dir", "/tmp/out")
	v.Set("end-block", int64(10))
	if _, err := Load(v, ""); err == nil {
		t.Fatalf("expected an error when provider-uri is unset")
	}
}

func TestLoadRejectsInvertedRange(t *testing.T) {
	v := viper.New()
	v.Set("provider-uri", "http://localhost:8545")
	v.Set("output-dir", "/tmp/out")
	v.Set("start-block", int64(10))
	v.Set("end-block", int64(5))
	if _, err := Load(v, ""); err == nil {
		t.Fatalf("expected an error when end-block < start-block")
	}
}

func TestLoadReadsConfigFileBeforeEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("provider-uri: http://file.invalid\noutput-dir: /tmp/file-out\nend-block: 20\nbatch-size: 50\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v := viper.New()
	cfg, err := Load(v, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProviderURI != "http://file.invalid" {
		t.Fatalf("expected provider-uri from config file, got %q", cfg.ProviderURI)
	}
	if cfg.BatchSize != 50 {
		t.Fatalf("expected batch-size 50 from config file overriding the default, got %d", cfg.BatchSize)
	}
}

func TestExplicitSetOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("provider-uri: http://file.invalid\noutput-dir: /tmp/file-out\nend-block: 20\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v := viper.New()
	v.Set("provider-uri", "http://flag.invalid") // simulates a CLI flag bound before Load
	cfg, err := Load(v, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProviderURI != "http://flag.invalid" {
		t.Fatalf("expected the explicitly-Set value to win over the config file, got %q", cfg.ProviderURI)
	}
}
