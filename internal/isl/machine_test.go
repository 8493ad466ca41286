package isl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routeflow/rfcoord/internal/rfconfig"
)

func islConfAB() *rfconfig.RFISLConf {
	return rfconfig.NewRFISLConf([]*rfconfig.RFISLConfEntry{
		{
			VMID: 0xa,
			CTID: 0, DPID: 0xff, DPPort: 1, EthAddr: [6]byte{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa},
			RemCT: 0, RemID: 0xee, RemPort: 2, RemEth: [6]byte{0xbb, 0xbb, 0xbb, 0xbb, 0xbb, 0xbb},
		},
	})
}

func TestRegisterPortInsertsIdleDPPortThenActivatesBothHalves(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, islConfAB())

	touchedA := m.RegisterPort(0, 0xff, 1)
	require.Len(t, touchedA, 1)
	require.Equal(t, StatusIdleDPPort, touchedA[0].Status())
	require.Equal(t, uint64(0xff), touchedA[0].DPID)
	require.Len(t, table.Get(), 1)

	touchedB := m.RegisterPort(0, 0xee, 2)
	require.Len(t, touchedB, 2)
	require.Equal(t, StatusActive, touchedB[0].Status())
	require.Equal(t, StatusActive, touchedB[1].Status())

	all := table.Get()
	require.Len(t, all, 2)
	for _, e := range all {
		require.Equal(t, StatusActive, e.Status())
	}

	var sawAtoB, sawBtoA bool
	for _, e := range all {
		if e.DPID == 0xff && e.RemID == 0xee {
			sawAtoB = true
		}
		if e.DPID == 0xee && e.RemID == 0xff {
			sawBtoA = true
		}
	}
	require.True(t, sawAtoB)
	require.True(t, sawBtoA)
}

func TestRegisterPortNoMatchingConfigIsNoop(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, islConfAB())

	touched := m.RegisterPort(0, 0x1, 9)
	require.Nil(t, touched)
	require.Len(t, table.Get(), 0)
}

func TestDatapathDownDemotesBothSides(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, islConfAB())

	m.RegisterPort(0, 0xff, 1)
	m.RegisterPort(0, 0xee, 2)

	m.DatapathDown(0, 0xff)

	all := table.Get()
	require.Len(t, all, 2)

	var sawIdleRemote, sawIdleDPPort bool
	for _, e := range all {
		switch {
		case e.RemID == 0xee:
			// originally A -> B; losing A's local side leaves only the
			// remote (B) side populated.
			require.Equal(t, StatusIdleRemote, e.Status())
			sawIdleRemote = true
		case e.DPID == 0xee:
			// originally B -> A; losing A from the remote side leaves
			// only B's local side populated.
			require.Equal(t, StatusIdleDPPort, e.Status())
			sawIdleDPPort = true
		}
	}
	require.True(t, sawIdleRemote)
	require.True(t, sawIdleDPPort)
}
