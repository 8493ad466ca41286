package assoc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routeflow/rfcoord/internal/rfconfig"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

func configAB() *rfconfig.RFConfig {
	return rfconfig.NewRFConfig([]*rfconfig.RFConfigEntry{
		{VMID: 0xa, VMPort: 1, CTID: 0, DPID: 0xff, DPPort: 2},
	})
}

func TestHappyPathBindingOrderDPFirst(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, configAB())

	_, associated := m.RegisterDPPort(0, 0xff, 2)
	require.False(t, associated)

	entry, associated := m.RegisterVMPort(0xa, 1, mustMAC(t, "aa:aa:aa:aa:aa:aa"))
	require.True(t, associated)
	require.Equal(t, StatusAssociated, entry.Status())

	activated, ok := m.VirtualPlaneMap(0xa, 1, 0xbb, 7)
	require.True(t, ok)
	require.Equal(t, StatusActive, activated.Status())
	require.Equal(t, uint64(0xbb), activated.VSID)
	require.Equal(t, uint32(7), activated.VSPort)

	require.Len(t, table.Get(), 1)
}

func TestHappyPathBindingOrderVMFirst(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, configAB())

	_, associated := m.RegisterVMPort(0xa, 1, mustMAC(t, "aa:aa:aa:aa:aa:aa"))
	require.False(t, associated)

	entry, associated := m.RegisterDPPort(0, 0xff, 2)
	require.True(t, associated)
	require.Equal(t, StatusAssociated, entry.Status())
}

func TestPortRegisterUnconfiguredProducesIdleVMPortOnly(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, configAB())

	entry, associated := m.RegisterVMPort(0xbad, 9, mustMAC(t, "cc:cc:cc:cc:cc:cc"))
	require.False(t, associated)
	require.Equal(t, StatusIdleVMPort, entry.Status())
	require.Len(t, table.Get(), 1)
}

func TestDatapathDownResetsActiveAssociationToIdleVMPort(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, configAB())

	m.RegisterDPPort(0, 0xff, 2)
	m.RegisterVMPort(0xa, 1, mustMAC(t, "aa:aa:aa:aa:aa:aa"))
	m.VirtualPlaneMap(0xa, 1, 0xbb, 7)

	demoted := m.DatapathDown(0, 0xff)
	require.Len(t, demoted, 1)
	require.Equal(t, StatusIdleVMPort, demoted[0].Status())
	require.Equal(t, uint64(0xa), demoted[0].VMID)
}

func TestDatapathDownRemovesBareIdleDPPortHalf(t *testing.T) {
	table := NewMemoryTable()
	m := NewMachine(table, configAB())

	m.RegisterDPPort(0, 0xff, 2)
	require.Len(t, table.Get(), 1)

	demoted := m.DatapathDown(0, 0xff)
	require.Len(t, demoted, 0)
	require.Len(t, table.Get(), 0)
}
