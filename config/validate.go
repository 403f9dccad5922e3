package config

import (
	"fmt"
	"strings"
)

// Validate performs the structural checks that do not require parsing the
// engine parameters: listen addresses, data directory and role addresses must
// be present. Parameter-level invariants are enforced by EngineParams.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("config: ChainID required")
	}
	for field, value := range map[string]string{
		"Owner":       cfg.Owner,
		"Manager":     cfg.Manager,
		"Treasury":    cfg.Treasury,
		"BurnAddress": cfg.BurnAddress,
		"Vault":       cfg.Vault,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("config: %s required", field)
		}
	}
	return nil
}
