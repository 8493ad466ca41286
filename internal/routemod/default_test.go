package routemod

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routeflow/rfcoord/internal/assoc"
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/values"
	"github.com/routeflow/rfcoord/internal/wire"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	hw, err := net.ParseMAC(s)
	require.NoError(t, err)
	return hw
}

func TestHandleRouteModNoOtherPorts(t *testing.T) {
	assocTbl := assoc.NewMemoryTable()
	entry := assoc.NewIdleDPPort(0, 0xff, 2)
	entry.SetVirtualSide(0xa, 1, mustMAC(t, "aa:aa:aa:aa:aa:aa"))
	assocTbl.Put(entry)

	tr := NewDefault(Context{CTID: 0, DPID: 0xff, Assoc: assocTbl, ISL: isl.NewMemoryTable()})

	rm := &wire.RouteMod{Op: wire.RouteModAdd, Dest: 0xa, VMPort: 1, Matches: []values.Match{values.Ethertype(0x0800)}}
	out := tr.HandleRouteMod(entry, rm)
	require.Empty(t, out)
}

func TestHandleRouteModWithSecondPort(t *testing.T) {
	assocTbl := assoc.NewMemoryTable()

	entry := assoc.NewIdleDPPort(0, 0xff, 2)
	entry.SetVirtualSide(0xa, 1, mustMAC(t, "aa:aa:aa:aa:aa:aa"))
	assocTbl.Put(entry)

	other := assoc.NewIdleDPPort(0, 0xff, 3)
	other.SetVirtualSide(0xb, 5, mustMAC(t, "bb:bb:bb:bb:bb:bb"))
	assocTbl.Put(other)

	tr := NewDefault(Context{CTID: 0, DPID: 0xff, Assoc: assocTbl, ISL: isl.NewMemoryTable()})

	rm := &wire.RouteMod{Op: wire.RouteModAdd, Dest: 0xa, VMPort: 1, Matches: []values.Match{values.Ethertype(0x0800)}}
	out := tr.HandleRouteMod(entry, rm)
	require.Len(t, out, 1)

	ethertype, ok := out[0].Matches[0].Ethertype()
	require.True(t, ok)
	require.Equal(t, uint16(0x0800), ethertype)

	eth, ok := out[0].Matches[1].Ethernet()
	require.True(t, ok)
	require.Equal(t, "bb:bb:bb:bb:bb:bb", eth.String())

	inPort, ok := out[0].Matches[2].InPort()
	require.True(t, ok)
	require.Equal(t, uint32(3), inPort)

	outPort, ok := out[0].Actions[0].OutputPort()
	require.True(t, ok)
	require.Equal(t, uint32(2), outPort)
}
