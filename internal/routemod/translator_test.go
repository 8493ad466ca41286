package routemod

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routeflow/rfcoord/internal/assoc"
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/values"
	"github.com/routeflow/rfcoord/internal/wire"
)

func TestRegistryKnownVendors(t *testing.T) {
	ctx := Context{CTID: 0, DPID: 0xff, Assoc: assoc.NewMemoryTable(), ISL: isl.NewMemoryTable()}

	for _, name := range []string{"default", "satellite", "noviflow", "corsa", "corsa-v1", "corsa-v3"} {
		tr, ok := New(name, ctx)
		require.True(t, ok, name)
		require.NotNil(t, tr)
	}
}

func TestRegistryUnknownVendor(t *testing.T) {
	_, ok := New("nope", Context{})
	require.False(t, ok)
}

func TestNoviFlowConfigureDatapathGoesThroughTables(t *testing.T) {
	ctx := Context{CTID: 0, DPID: 0xff, Assoc: assoc.NewMemoryTable(), ISL: isl.NewMemoryTable()}
	tr := NewNoviFlow(ctx)

	rms := tr.ConfigureDatapath()
	require.NotEmpty(t, rms)

	var sawEtherGoto, sawFIBGoto bool
	for _, rm := range rms {
		for _, a := range rm.Actions {
			if a.Type != values.ActionGoto {
				continue
			}
			target, _ := a.IntValue()
			if rm.Table == TableEntry && target == TableEther {
				sawEtherGoto = true
			}
			if rm.Table == TableEther && target == TableFIB {
				sawFIBGoto = true
			}
		}
	}
	require.True(t, sawEtherGoto)
	require.True(t, sawFIBGoto)
}

func TestCorsaGroupIndirectionReusesGroup(t *testing.T) {
	ctx := Context{CTID: 0, DPID: 0xff, Assoc: assoc.NewMemoryTable(), ISL: isl.NewMemoryTable()}
	tr := NewCorsaV1(ctx)

	entry := assoc.NewIdleDPPort(0, 0xff, 2)
	entry.SetVirtualSide(0xa, 1, mustMAC(t, "aa:aa:aa:aa:aa:aa"))

	rm := &wire.RouteMod{Op: wire.RouteModAdd, Matches: []values.Match{values.Ethertype(0x0800)}}
	first := tr.HandleRouteMod(entry, rm)
	require.Len(t, first, 2) // ADD_GROUP + FIB rule

	second := tr.HandleRouteMod(entry, rm)
	require.Len(t, second, 1) // group reused, only the FIB rule
}
