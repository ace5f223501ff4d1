package core

import (
	"fmt"
	"strings"
	"time"
)

type TimingConfig struct {
	SettleDelay         time.Duration `koanf:"settle_delay" mapstructure:"settle_delay"`
	RepairSettleDelay   time.Duration `koanf:"repair_settle_delay" mapstructure:"repair_settle_delay"`
	PairingRequestDelay time.Duration `koanf:"pairing_request_delay" mapstructure:"pairing_request_delay"`
	LockTTL             time.Duration `koanf:"lock_ttl" mapstructure:"lock_ttl"`
}

type Config struct {
	ServiceName   string       `koanf:"service_name" mapstructure:"service_name"`
	WorkspaceRoot string       `koanf:"workspace_root" mapstructure:"workspace_root"`
	Timing        TimingConfig `koanf:"timing" mapstructure:"timing"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "sessions",
		WorkspaceRoot: "./sessions",
		Timing: TimingConfig{
			SettleDelay:         time.Second,
			RepairSettleDelay:   3 * time.Second,
			PairingRequestDelay: 2 * time.Second,
			LockTTL:             time.Minute,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.WorkspaceRoot) == "" {
		return fmt.Errorf("core: workspace_root is required")
	}
	if c.Timing.SettleDelay < 0 || c.Timing.RepairSettleDelay < 0 || c.Timing.PairingRequestDelay < 0 {
		return fmt.Errorf("core: settle delays must not be negative")
	}
	if c.Timing.LockTTL < 0 {
		return fmt.Errorf("core: lock_ttl must not be negative")
	}
	return nil
}
