package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModConfig is the YAML file describing the moderation surface: which guild
// and channel receive reports, and which roles may moderate.
type ModConfig struct {
	GuildID         string   `yaml:"guild_id,omitempty"`
	ReportChannelID string   `yaml:"report_channel_id"`
	ModRoleIDs      []string `yaml:"mod_role_ids"`
}

// Validate reports the first problem that would make the config unusable.
func (c ModConfig) Validate() error {
	if c.ReportChannelID == "" {
		return fmt.Errorf("mod config: report_channel_id is required")
	}
	if len(c.ModRoleIDs) == 0 {
		return fmt.Errorf("mod config: at least one mod_role_ids entry is required")
	}
	return nil
}

// LoadModConfig reads and validates a moderation config YAML file.
func LoadModConfig(path string) (ModConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return ModConfig{}, fmt.Errorf("read mod config: %w", err)
	}
	return ParseModConfig(data)
}

// ParseModConfig parses YAML data into a validated ModConfig.
func ParseModConfig(data []byte) (ModConfig, error) {
	var cfg ModConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ModConfig{}, fmt.Errorf("parse mod config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ModConfig{}, err
	}
	return cfg, nil
}
