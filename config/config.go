// Package config loads the runner settings from a yaml file. The pricing
// core itself reads neither files nor environment; only the cmd layer uses
// this.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tmglimp/Zfut-arbs/curve"
)

// Config is the full set of runner settings.
type Config struct {
	Curve curve.Config `yaml:"curve"`

	// Seconds between pipeline runs.
	IntervalSeconds float64 `yaml:"interval_seconds"`

	// Input table paths (csv).
	ZeroesPath  string `yaml:"zeroes_path"`
	BondsPath   string `yaml:"bonds_path"`
	FuturesPath string `yaml:"futures_path"`

	// Output table paths (csv); empty disables the write.
	ImpliedPath string `yaml:"implied_path"`
	HedgesPath  string `yaml:"hedges_path"`
	CombosPath  string `yaml:"combos_path"`

	// HTTP listen address for the snapshot api; empty disables it.
	ListenAddr string `yaml:"listen_addr"`

	// Postgres DSN for snapshot persistence; empty disables it.
	DatabaseURL string `yaml:"database_url"`
}

// Default returns the settings matching the production constants.
func Default() Config {
	return Config{
		Curve:           curve.DefaultConfig(),
		IntervalSeconds: 3,
		ZeroesPath:      "zeroes.csv",
		BondsPath:       "usts.csv",
		FuturesPath:     "futures.csv",
		ImpliedPath:     "implied.csv",
		HedgesPath:      "HEDGES.csv",
		CombosPath:      "HEDGES_combos.csv",
		ListenAddr:      ":8080",
	}
}

// Interval converts the configured seconds into a run period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds * float64(time.Second))
}

// Load reads a yaml config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
