// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Analyze  AnalyzeConfig  `toml:"analyze"`
	Converge ConvergeConfig `toml:"converge"`
	Bench    BenchConfig    `toml:"bench"`
	Log      LogConfig      `toml:"log"`
}

// AnalyzeConfig maps key search settings. They also seed converge and bench.
type AnalyzeConfig struct {
	Algorithm          *string  `toml:"algorithm"`
	Iterations         *int     `toml:"iterations"`
	Restarts           *int     `toml:"restarts"`
	Alpha              *float64 `toml:"alpha"`
	InitialTemperature *float64 `toml:"initial-temperature"`
	FinalTemperature   *float64 `toml:"final-temperature"`
	Seed               *int64   `toml:"seed"`
	Corpus             *string  `toml:"corpus"`
}

// ConvergeConfig maps budget sweep settings.
type ConvergeConfig struct {
	Budgets    []int   `toml:"budgets"`
	Trials     *int    `toml:"trials"`
	Workers    *int    `toml:"workers"`
	MinLetters *int    `toml:"min-letters"`
	Timeout    *string `toml:"timeout"`
}

// BenchConfig maps benchmark settings.
type BenchConfig struct {
	Cases      *int     `toml:"cases"`
	MinLetters *int     `toml:"min-letters"`
	Workers    *int     `toml:"workers"`
	Timeout    *string  `toml:"timeout"`
	Algorithms []string `toml:"algorithms"`
	Exec       []string `toml:"exec"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
