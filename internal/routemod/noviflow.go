package routemod

import (
	"github.com/routeflow/rfcoord/internal/assoc"
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/values"
	"github.com/routeflow/rfcoord/internal/wire"
)

// NoviFlow multi-table numbering.
const (
	TableEntry uint32 = 0
	TableEther uint32 = 1
	TableFIB   uint32 = 2
	TableFP    uint32 = 3
)

// priorityHigh is the single priority every NoviFlow rule installs at:
// the device rebuilds its whole table on any priority change, so every
// rule in a given table is flattened to one value.
const priorityHigh uint16 = 0xffff

// NoviFlow is the multi-table pipeline: entry table 0 steers to
// ETHER_TABLE (1), which handles ARP and sends IP traffic on to
// FIB_TABLE (2). TableFP (3) is defined but no rule is installed into it;
// in fastpath mode the per-port ARP rules sit in ETHER_TABLE.
type NoviFlow struct {
	ctx Context
}

// NewNoviFlow builds the NoviFlow pipeline translator.
func NewNoviFlow(ctx Context) *NoviFlow { return &NoviFlow{ctx: ctx} }

// ConfigureDatapath lays down the three-table skeleton: table 0 steers
// everything to ETHER_TABLE; ETHER_TABLE punts ARP (or, in fastpath mode,
// pushes a per-port VLAN label and exits towards the fastpath link) and
// sends IPv4/IPv6 on to FIB_TABLE.
func (n *NoviFlow) ConfigureDatapath() []*wire.RouteMod {
	out := []*wire.RouteMod{
		{Op: wire.RouteModDeleteGroup, Dest: n.ctx.DPID, Group: 0xffffffff},
		{Op: wire.RouteModDelete, Dest: n.ctx.DPID},
		{
			Op:      wire.RouteModAdd,
			Dest:    n.ctx.DPID,
			Table:   TableEntry,
			Actions: []values.Action{values.Goto(TableEther)},
			Options: []values.Option{values.Priority(priorityHigh)},
		},
	}

	for _, ethertype := range []uint16{ethertypeIPv4, ethertypeIPv6} {
		out = append(out, &wire.RouteMod{
			Op:      wire.RouteModAdd,
			Dest:    n.ctx.DPID,
			Table:   TableEther,
			Matches: []values.Match{values.Ethertype(ethertype)},
			Actions: []values.Action{values.Goto(TableFIB)},
			Options: []values.Option{values.Priority(priorityHigh)},
		})
	}

	if fp, ok := n.ctx.fastpathEnabled(); ok {
		for _, cfgPort := range n.ctx.Config.ForDP(n.ctx.CTID, n.ctx.DPID) {
			label, has := cfgPort.FPLabel()
			if !has {
				continue
			}
			out = append(out, &wire.RouteMod{
				Op:    wire.RouteModAdd,
				Dest:  n.ctx.DPID,
				Table: TableEther,
				Matches: []values.Match{
					values.Ethertype(ethertypeARP),
					values.InPort(cfgPort.DPPort),
				},
				Actions: []values.Action{values.PushVLANID(uint32(label)), values.Output(fp.DP0Port)},
				Options: []values.Option{values.Priority(priorityHigh)},
			})
		}
		return out
	}

	out = append(out, &wire.RouteMod{
		Op:      wire.RouteModAdd,
		Dest:    n.ctx.DPID,
		Table:   TableEther,
		Matches: []values.Match{values.Ethertype(ethertypeARP)},
		Actions: []values.Action{values.Controller()},
		Options: []values.Option{values.Priority(priorityHigh)},
	})
	return out
}

// HandleControllerRouteMod splits the punt into a FIB rule matching the
// original L3 fields and, when the RouteMod's matches carry a
// destination Ethernet address, an L2 classifier in ETHER_TABLE keyed on
// that address.
func (n *NoviFlow) HandleControllerRouteMod(_ *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	fib := rm.Clone()
	fib.Dest = n.ctx.DPID
	fib.Table = TableFIB
	fib.Actions = []values.Action{values.Controller()}
	fib.Options = []values.Option{values.Priority(priorityHigh)}

	out := []*wire.RouteMod{&fib}

	for _, m := range rm.Matches {
		eth, ok := m.Ethernet()
		if !ok {
			continue
		}
		out = append(out, &wire.RouteMod{
			Op:      rm.Op,
			Dest:    n.ctx.DPID,
			Table:   TableEther,
			Matches: []values.Match{values.Ethernet(eth)},
			Actions: []values.Action{values.Goto(TableFIB)},
			Options: []values.Option{values.Priority(priorityHigh)},
		})
		break
	}
	return out
}

// HandleRouteMod installs a single FIB_TABLE rule: the multi-table
// pipelines have no in-port fan-out, since ETHER_TABLE already narrowed
// the traffic by source classification upstream.
func (n *NoviFlow) HandleRouteMod(entry *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	out := rm.Clone()
	out.Dest = n.ctx.DPID
	out.Table = TableFIB
	out.Actions = []values.Action{values.Output(entry.DPPort)}
	out.Options = []values.Option{values.Priority(priorityHigh)}
	return []*wire.RouteMod{&out}
}

// HandleISLRouteMod installs a single FIB_TABLE rule rewriting source and
// destination MAC to the link's addresses and outputting on the ISL
// port.
func (n *NoviFlow) HandleISLRouteMod(link *isl.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	out := rm.Clone()
	out.Dest = n.ctx.DPID
	out.Table = TableFIB
	out.Actions = []values.Action{
		values.SetEthSrc(link.EthHW),
		values.SetEthDst(link.RemEthHW),
		values.Output(link.DPPort),
	}
	out.Options = []values.Option{values.Priority(priorityHigh)}
	return []*wire.RouteMod{&out}
}
