package rfconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// VendorOverride extends the -m/-s CLI lists with a glob-style dp_id
// selector, checked against a dp_id's decimal string form, for vendor
// assignments that don't fit a flat per-dpid list — e.g. "every dp_id
// under 2* is corsa, unless -m names it explicitly".
type VendorOverride struct {
	Pattern string `yaml:"pattern"`
	Vendor  string `yaml:"vendor"`

	compiled glob.Glob
}

// DaemonConfig is the optional YAML daemon configuration, layered under
// the required CSV inputs.
type DaemonConfig struct {
	// LogLevel names a zapcore level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
	// VendorOverrides is checked, in order, after the -m flag's explicit
	// per-dpid map and before satellite/default fallback.
	VendorOverrides []VendorOverride `yaml:"vendor_overrides"`
}

// DefaultDaemonConfig is the zero-override, info-level default used when
// no -c flag is given.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{LogLevel: "info"}
}

// LoadDaemonConfig loads path's YAML and compiles its vendor_overrides
// patterns.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read daemon config: %w", err)
	}

	cfg := DefaultDaemonConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse daemon config: %w", err)
	}

	for i, ov := range cfg.VendorOverrides {
		g, err := glob.Compile(ov.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid vendor_overrides pattern %q: %w", ov.Pattern, err)
		}
		cfg.VendorOverrides[i].compiled = g
	}
	return cfg, nil
}

// VendorFor returns the vendor name assigned by the first pattern
// matching dpID's decimal string form, and false if none match.
func (c *DaemonConfig) VendorFor(dpID uint64) (string, bool) {
	if c == nil {
		return "", false
	}
	s := strconv.FormatUint(dpID, 10)
	for _, ov := range c.VendorOverrides {
		if ov.compiled != nil && ov.compiled.Match(s) {
			return ov.Vendor, true
		}
	}
	return "", false
}
