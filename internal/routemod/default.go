package routemod

import (
	"github.com/routeflow/rfcoord/internal/assoc"
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/store"
	"github.com/routeflow/rfcoord/internal/values"
	"github.com/routeflow/rfcoord/internal/wire"
)

// priorityDefault is the flow priority configure_datapath installs its
// default rules at.
const priorityDefault uint16 = 0x8000

const (
	ethertypeIPv4 uint16 = 0x0800
	ethertypeIPv6 uint16 = 0x86dd
	ethertypeARP  uint16 = 0x0806
)

// Default is the single-table pipeline: table 0 only.
type Default struct {
	ctx Context
}

// NewDefault builds the default pipeline translator.
func NewDefault(ctx Context) *Default { return &Default{ctx: ctx} }

// otherActivePorts lists every live endpoint on this datapath other than
// exclude: bound associations and active ISL halves. This is the fan-out
// target set used by HandleRouteMod and HandleISLRouteMod.
func (d *Default) otherActivePorts(exclude uint32) []port {
	var out []port

	for _, e := range d.ctx.Assoc.Get(store.F("CTID", d.ctx.CTID), store.F("DPID", d.ctx.DPID)) {
		if e.DPPort == exclude || !(e.Status() == assoc.StatusAssociated || e.Status() == assoc.StatusActive) {
			continue
		}
		out = append(out, port{dpPort: e.DPPort, eth: []byte(e.EthHW)})
	}

	for _, e := range d.ctx.ISL.Get(store.F("CTID", d.ctx.CTID), store.F("DPID", d.ctx.DPID)) {
		if e.DPPort == exclude || e.Status() != isl.StatusActive {
			continue
		}
		out = append(out, port{dpPort: e.DPPort, eth: []byte(e.EthHW)})
	}

	return out
}

// ConfigureDatapath deletes all groups and flows, installs a default
// ETHERTYPE-IP drop and an ETHERTYPE-ARP rule. In fastpath mode the
// controller punt is replaced by a per-port "push VLAN label, output the
// fastpath port" rule, since the action depends on which port the ARP
// arrived on.
func (d *Default) ConfigureDatapath() []*wire.RouteMod {
	out := []*wire.RouteMod{
		{Op: wire.RouteModDeleteGroup, Dest: d.ctx.DPID, Group: 0xffffffff},
		{Op: wire.RouteModDelete, Dest: d.ctx.DPID},
		{
			Op:      wire.RouteModAdd,
			Dest:    d.ctx.DPID,
			Matches: []values.Match{values.Ethertype(ethertypeIPv4)},
			Actions: []values.Action{values.Drop()},
			Options: []values.Option{values.Priority(priorityDefault)},
		},
	}

	if fp, ok := d.ctx.fastpathEnabled(); ok {
		for _, cfgPort := range d.ctx.Config.ForDP(d.ctx.CTID, d.ctx.DPID) {
			label, has := cfgPort.FPLabel()
			if !has {
				continue
			}
			out = append(out, &wire.RouteMod{
				Op: wire.RouteModAdd,
				Dest: d.ctx.DPID,
				Matches: []values.Match{
					values.Ethertype(ethertypeARP),
					values.InPort(cfgPort.DPPort),
				},
				Actions: []values.Action{values.PushVLANID(uint32(label)), values.Output(fp.DP0Port)},
				Options: []values.Option{values.Priority(priorityDefault)},
			})
		}
		return out
	}

	out = append(out, &wire.RouteMod{
		Op:      wire.RouteModAdd,
		Dest:    d.ctx.DPID,
		Matches: []values.Match{values.Ethertype(ethertypeARP)},
		Actions: []values.Action{values.Controller()},
		Options: []values.Option{values.Priority(priorityDefault)},
	})
	return out
}

// HandleControllerRouteMod punts matching traffic to the routing stack.
func (d *Default) HandleControllerRouteMod(_ *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	out := rm.Clone()
	out.Dest = d.ctx.DPID
	out.Actions = []values.Action{values.Controller()}
	return []*wire.RouteMod{&out}
}

// HandleRouteMod attaches an OUTPUT(entry.dp_port) action and emits one
// rule per other live port on the datapath, matching that port's ingress
// and Ethernet address.
func (d *Default) HandleRouteMod(entry *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	var out []*wire.RouteMod
	for _, other := range d.otherActivePorts(entry.DPPort) {
		nrm := &wire.RouteMod{
			Op:      rm.Op,
			Dest:    d.ctx.DPID,
			Matches: append(values.CloneMatches(rm.Matches), values.Ethernet(other.eth), values.InPort(other.dpPort)),
			Actions: []values.Action{values.Output(entry.DPPort)},
		}
		out = append(out, nrm)
	}
	return out
}

// HandleISLRouteMod rewrites source/destination MAC to the link's
// addresses, outputs on the ISL port, and fans that out across every
// other live port on the datapath.
func (d *Default) HandleISLRouteMod(link *isl.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	actions := []values.Action{
		values.SetEthSrc(link.EthHW),
		values.SetEthDst(link.RemEthHW),
		values.Output(link.DPPort),
	}

	var out []*wire.RouteMod
	for _, other := range d.otherActivePorts(link.DPPort) {
		nrm := &wire.RouteMod{
			Op:      rm.Op,
			Dest:    d.ctx.DPID,
			Matches: append(values.CloneMatches(rm.Matches), values.Ethernet(other.eth), values.InPort(other.dpPort)),
			Actions: values.CloneActions(actions),
		}
		out = append(out, nrm)
	}
	return out
}
