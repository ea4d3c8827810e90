package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a strategy YAML file. KnownFields(true) rejects typos and
// unused keys immediately instead of silently ignoring them.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse strategy config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Meta.Timezone == "" {
		cfg.Meta.Timezone = "America/New_York"
	}
	if cfg.Meta.BaseCurrency == "" {
		cfg.Meta.BaseCurrency = "CNY"
	}
	if cfg.Symbols.Benchmark == "" {
		cfg.Symbols.Benchmark = "RSP"
	}
	if cfg.Params.FXMode == "" {
		cfg.Params.FXMode = "fixed"
	}
	if cfg.Params.FXSymbol == "" {
		cfg.Params.FXSymbol = "USDCNY=X"
	}
	if cfg.Params.FXFallbackUsdCny == 0 {
		cfg.Params.FXFallbackUsdCny = cfg.Params.FXUsdCny
	}
	if cfg.Params.TargetWeightEach == 0 && len(cfg.Symbols.Portfolio) > 0 {
		cfg.Params.TargetWeightEach = 1.0 / float64(len(cfg.Symbols.Portfolio))
	}
	if cfg.Execution.FractionalStep == 0 {
		cfg.Execution.FractionalStep = 0.0001
	}
	if cfg.CashPool.Source == "" {
		cfg.CashPool.Source = "AUTO"
	}
	if cfg.Broker.Mode == "" {
		cfg.Broker.Mode = "paper"
	}
}

// Hash produces a deterministic SHA-256 over the canonical JSON rendering of
// the config. Trade log entries are stamped with it so that every historical
// decision can be tied to the exact parameters that produced it.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
