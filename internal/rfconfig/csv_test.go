package rfconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRFConfig(t *testing.T) {
	path := writeTemp(t, "config.csv", ""+
		"vm_id,vm_port,ct_id,dp_id,dp_port\n"+
		"0xa,1,0,0xff,2 # a comment\n"+
		"\n"+
		"   \n"+
		"0xb,3,0,0xff,4\n")

	cfg, err := LoadRFConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.All(), 2)

	e, ok := cfg.ByVMPort(0xa, 1)
	require.True(t, ok)
	require.Equal(t, uint64(0), e.CTID)
	require.Equal(t, uint64(0xff), e.DPID)
	require.Equal(t, uint32(2), e.DPPort)
}

func TestLoadRFConfigMalformedLine(t *testing.T) {
	path := writeTemp(t, "config.csv", "vm_id,vm_port,ct_id,dp_id,dp_port\n0xa,1,0\n")

	_, err := LoadRFConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "vm_id(hex)")
}

func TestLoadRFISLConf(t *testing.T) {
	path := writeTemp(t, "islconf.csv", ""+
		"header\n"+
		"0xa,0,0xff,1,aa:aa:aa:aa:aa:aa,0,0xee,2,bb:bb:bb:bb:bb:bb\n")

	cfg, err := LoadRFISLConf(path)
	require.NoError(t, err)
	require.Len(t, cfg.All(), 1)

	got := cfg.ByPort(0, 0xff, 1)
	require.Len(t, got, 1)
	require.Equal(t, uint64(0xee), got[0].RemID)
}

func TestLoadRFFPConf(t *testing.T) {
	path := writeTemp(t, "fastpaths.csv", "header\n0,0xff,1,2\n")

	cfg, err := LoadRFFPConf(path)
	require.NoError(t, err)
	require.True(t, cfg.Enabled())

	e, ok := cfg.ForDP(0, 0xff)
	require.True(t, ok)
	require.Equal(t, uint32(2), e.DP0Port)
}

func TestRFFPConfEmptyMeansDisabled(t *testing.T) {
	cfg := NewRFFPConf(nil)
	require.False(t, cfg.Enabled())
}
