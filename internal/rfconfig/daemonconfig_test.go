package rfconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDaemonConfigCompilesVendorOverrides(t *testing.T) {
	path := writeTemp(t, "rfcoord.yaml", ""+
		"log_level: warn\n"+
		"vendor_overrides:\n"+
		"  - pattern: \"2*\"\n"+
		"    vendor: corsa\n"+
		"  - pattern: \"3*\"\n"+
		"    vendor: noviflow\n")

	cfg, err := LoadDaemonConfig(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.LogLevel)

	v, ok := cfg.VendorFor(255)
	require.True(t, ok)
	require.Equal(t, "corsa", v)

	v, ok = cfg.VendorFor(31)
	require.True(t, ok)
	require.Equal(t, "noviflow", v)

	_, ok = cfg.VendorFor(7)
	require.False(t, ok)
}

func TestLoadDaemonConfigRejectsBadPattern(t *testing.T) {
	path := writeTemp(t, "rfcoord.yaml", ""+
		"vendor_overrides:\n"+
		"  - pattern: \"[\"\n"+
		"    vendor: corsa\n")

	_, err := LoadDaemonConfig(path)
	require.Error(t, err)
}

func TestDefaultDaemonConfigHasNoOverrides(t *testing.T) {
	cfg := DefaultDaemonConfig()
	require.Equal(t, "info", cfg.LogLevel)
	_, ok := cfg.VendorFor(1)
	require.False(t, ok)
}

func TestNilDaemonConfigVendorForIsSafe(t *testing.T) {
	var cfg *DaemonConfig
	_, ok := cfg.VendorFor(1)
	require.False(t, ok)
}
