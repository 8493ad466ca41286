package fastpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routeflow/rfcoord/internal/rfconfig"
)

func TestRunSingleLeafThreePorts(t *testing.T) {
	cfg := rfconfig.NewRFConfig([]*rfconfig.RFConfigEntry{
		{VMID: 1, VMPort: 10, CTID: 0, DPID: 0xff, DPPort: 1},
		{VMID: 1, VMPort: 11, CTID: 0, DPID: 0xff, DPPort: 2},
		{VMID: 1, VMPort: 12, CTID: 0, DPID: 0xff, DPPort: 3},
	})
	isl := rfconfig.NewRFISLConf(nil)
	fpEntry := &rfconfig.RFFPConfEntry{CTID: 0, DPID: 0xff, DPPort: 4, DP0Port: 5}
	fp := rfconfig.NewRFFPConf([]*rfconfig.RFFPConfEntry{fpEntry})

	require.NoError(t, Run(cfg, isl, fp))

	for i, port := range cfg.All() {
		label, ok := port.FPLabel()
		require.True(t, ok)
		require.Equal(t, uint16(2+i), label)
	}

	master, ok := fpEntry.FPMaster()
	require.True(t, ok)
	require.Equal(t, uint64(0xff), master)

	require.Equal(t, []rfconfig.FastPathPort{
		{Label: 2, VMPort: 10},
		{Label: 3, VMPort: 11},
		{Label: 4, VMPort: 12},
	}, fpEntry.FastPaths)
}

func TestRunDisabledWhenNoFPConf(t *testing.T) {
	cfg := rfconfig.NewRFConfig([]*rfconfig.RFConfigEntry{{VMID: 1, VMPort: 10, CTID: 0, DPID: 0xff, DPPort: 1}})
	isl := rfconfig.NewRFISLConf(nil)
	fp := rfconfig.NewRFFPConf(nil)

	require.NoError(t, Run(cfg, isl, fp))

	_, ok := cfg.All()[0].FPLabel()
	require.False(t, ok)
}

func TestRunPropagatesAcrossISL(t *testing.T) {
	// controller -- dp 0xff (fp root, one port) -- ISL -- dp 0xee (one port)
	cfg := rfconfig.NewRFConfig([]*rfconfig.RFConfigEntry{
		{VMID: 1, VMPort: 1, CTID: 0, DPID: 0xff, DPPort: 1},
		{VMID: 1, VMPort: 2, CTID: 0, DPID: 0xee, DPPort: 1},
	})
	islEntry := &rfconfig.RFISLConfEntry{CTID: 0, DPID: 0xff, DPPort: 9, RemCT: 0, RemID: 0xee, RemPort: 9}
	isl := rfconfig.NewRFISLConf([]*rfconfig.RFISLConfEntry{islEntry})
	fpEntry := &rfconfig.RFFPConfEntry{CTID: 0, DPID: 0xff, DPPort: 4, DP0Port: 5}
	fp := rfconfig.NewRFFPConf([]*rfconfig.RFFPConfEntry{fpEntry})

	require.NoError(t, Run(cfg, isl, fp))

	rootPort, _ := cfg.ByDPPort(0, 0xff, 1)
	leafPort, _ := cfg.ByDPPort(0, 0xee, 1)
	rootLabel, _ := rootPort.FPLabel()
	leafLabel, _ := leafPort.FPLabel()
	require.Equal(t, uint16(2), rootLabel)
	require.Equal(t, uint16(3), leafLabel)

	islMaster, ok := islEntry.FPMaster()
	require.True(t, ok)
	require.Equal(t, uint64(0xff), islMaster)

	// Pull-up: the root fastpath link carries both its own label and the
	// one from the ISL leaf it reaches.
	require.ElementsMatch(t, []rfconfig.FastPathPort{
		{Label: 2, VMPort: 1},
		{Label: 3, VMPort: 2},
	}, fpEntry.FastPaths)
	require.Equal(t, []rfconfig.FastPathPort{{Label: 3, VMPort: 2}}, islEntry.FastPaths)
}

func TestRunFailsOnLabelExhaustion(t *testing.T) {
	var entries []*rfconfig.RFConfigEntry
	for i := 0; i < maxLabel; i++ {
		entries = append(entries, &rfconfig.RFConfigEntry{VMID: 1, VMPort: uint32(i), CTID: 0, DPID: 0xff, DPPort: uint32(i)})
	}
	cfg := rfconfig.NewRFConfig(entries)
	isl := rfconfig.NewRFISLConf(nil)
	fp := rfconfig.NewRFFPConf([]*rfconfig.RFFPConfEntry{{CTID: 0, DPID: 0xff, DPPort: 1, DP0Port: 2}})

	err := Run(cfg, isl, fp)
	require.Error(t, err)
}
