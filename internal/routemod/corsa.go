package routemod

import (
	"net"

	"github.com/routeflow/rfcoord/internal/assoc"
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/values"
	"github.com/routeflow/rfcoord/internal/wire"
)

// Corsa table numbering, shared by both major versions. corsa-v3 carries
// three extra tables (v1 has 7 stages total, v3 has 10), which receive only
// the skeleton goto/drop rules; the LOCAL_TABLE index (localTable) is the
// last stage, so it is computed per instance from the stage count.
const (
	CorsaTableVLAN  uint32 = 0
	CorsaTableEther uint32 = 1
	CorsaTableFIB   uint32 = 2

	corsaStagesV1 uint32 = 7
	corsaStagesV3 uint32 = 10

	corsaDefaultMeter uint32 = 1
)

// corsaGroups is the group-indirection cache: the next-hop destination
// Ethernet address of a rule selects or allocates a group id. It is only
// ever touched from the coordinator's single dispatch thread (the
// translator cache is append-only, one writer), so it needs no locking of
// its own.
type corsaGroups struct {
	byEth  map[string]uint32
	nextID uint32
}

func newCorsaGroups() *corsaGroups {
	return &corsaGroups{byEth: map[string]uint32{}, nextID: 1}
}

func (g *corsaGroups) groupFor(eth net.HardwareAddr) (id uint32, isNew bool) {
	key := eth.String()
	if id, ok := g.byEth[key]; ok {
		return id, false
	}
	id = g.nextID
	g.nextID++
	g.byEth[key] = id
	return id, true
}

// Corsa implements both the corsa-v1 and corsa-v3 pipelines; v3 differs
// by deferring the group action, applying a default meter in the VLAN
// stage, and carrying three extra stages.
type Corsa struct {
	ctx    Context
	v3     bool
	groups *corsaGroups
}

// NewCorsaV1 builds the 7-stage corsa-v1 pipeline translator.
func NewCorsaV1(ctx Context) *Corsa { return &Corsa{ctx: ctx, groups: newCorsaGroups()} }

// NewCorsaV3 builds the 10-stage corsa-v3 pipeline translator.
func NewCorsaV3(ctx Context) *Corsa { return &Corsa{ctx: ctx, v3: true, groups: newCorsaGroups()} }

func (c *Corsa) stages() uint32 {
	if c.v3 {
		return corsaStagesV3
	}
	return corsaStagesV1
}

func (c *Corsa) localTable() uint32 { return c.stages() - 1 }

func (c *Corsa) vlanStageActions() []values.Action {
	if c.v3 {
		return []values.Action{values.SetVLANPCP(0), values.SetQueue(0), values.ApplyMeter(corsaDefaultMeter), values.Goto(CorsaTableEther)}
	}
	return []values.Action{values.StripVLAN(), values.Goto(CorsaTableEther)}
}

// ConfigureDatapath lays down the full stage skeleton: a drop default on
// every table but LOCAL_TABLE, a GOTO chain across the mutable intermediate tables, the
// VLAN strip/check stage, and a LOCAL_TABLE that punts anything
// unclassified to the controller. v3 additionally installs a default
// meter referenced by the VLAN stage.
func (c *Corsa) ConfigureDatapath() []*wire.RouteMod {
	out := []*wire.RouteMod{
		{Op: wire.RouteModDeleteGroup, Dest: c.ctx.DPID, Group: 0xffffffff},
		{Op: wire.RouteModDelete, Dest: c.ctx.DPID},
	}

	if c.v3 {
		out = append(out, &wire.RouteMod{
			Op:    wire.RouteModAddMeter,
			Dest:  c.ctx.DPID,
			Meter: corsaDefaultMeter,
			Bands: []values.Band{values.MeterDrop(0, 0)},
		})
	}

	n := c.stages()
	for t := uint32(0); t < n-1; t++ {
		out = append(out, &wire.RouteMod{
			Op:      wire.RouteModAdd,
			Dest:    c.ctx.DPID,
			Table:   t,
			Actions: []values.Action{values.Goto(t + 1)},
			Options: []values.Option{values.Priority(priorityDefault)},
		})
		out = append(out, &wire.RouteMod{
			Op:      wire.RouteModAdd,
			Dest:    c.ctx.DPID,
			Table:   t,
			Actions: []values.Action{values.Drop()},
			Options: []values.Option{values.Priority(0)},
		})
	}

	out = append(out, &wire.RouteMod{
		Op:      wire.RouteModAdd,
		Dest:    c.ctx.DPID,
		Table:   CorsaTableVLAN,
		Matches: []values.Match{values.VLANTagged(true)},
		Actions: c.vlanStageActions(),
		Options: []values.Option{values.Priority(priorityDefault)},
	})

	out = append(out, &wire.RouteMod{
		Op:      wire.RouteModAdd,
		Dest:    c.ctx.DPID,
		Table:   c.localTable(),
		Actions: []values.Action{values.Controller()},
		Options: []values.Option{values.Priority(priorityDefault)},
	})

	return out
}

// HandleControllerRouteMod punts matching traffic to the routing stack
// directly from FIB_TABLE, ahead of the LOCAL_TABLE catch-all.
func (c *Corsa) HandleControllerRouteMod(_ *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	out := rm.Clone()
	out.Dest = c.ctx.DPID
	out.Table = CorsaTableFIB
	out.Actions = []values.Action{values.Controller()}
	out.Options = []values.Option{values.Priority(priorityDefault)}
	return []*wire.RouteMod{&out}
}

// vlanRuleFor installs a per-flow VLAN_TABLE rule when the RouteMod's
// matches carry a VLAN id, ahead of the FIB_TABLE rule it feeds into.
func (c *Corsa) vlanRuleFor(rm *wire.RouteMod) *wire.RouteMod {
	for _, m := range rm.Matches {
		id, ok := m.VLANID()
		if !ok {
			continue
		}
		return &wire.RouteMod{
			Op:      rm.Op,
			Dest:    c.ctx.DPID,
			Table:   CorsaTableVLAN,
			Matches: []values.Match{values.VLANID(id)},
			Actions: c.vlanStageActions(),
			Options: []values.Option{values.Priority(priorityDefault)},
		}
	}
	return nil
}

// groupRouteMod allocates or reuses a group for keyEth, emitting the
// ADD_GROUP rule before the FIB_TABLE rule that references it (groups
// must exist before anything points at them).
func (c *Corsa) groupRouteMod(rm *wire.RouteMod, actions []values.Action, keyEth net.HardwareAddr) []*wire.RouteMod {
	id, isNew := c.groups.groupFor(keyEth)

	var out []*wire.RouteMod
	if isNew {
		out = append(out, &wire.RouteMod{Op: wire.RouteModAddGroup, Dest: c.ctx.DPID, Group: id, Actions: actions})
	}

	groupAction := values.Group(id)
	if c.v3 {
		groupAction = values.GroupDeferred(id)
	}

	out = append(out, &wire.RouteMod{
		Op:      rm.Op,
		Dest:    c.ctx.DPID,
		Table:   CorsaTableFIB,
		Matches: values.CloneMatches(rm.Matches),
		Actions: []values.Action{groupAction},
		Options: []values.Option{values.Priority(priorityDefault)},
	})
	return out
}

// HandleRouteMod resolves the group for entry's Ethernet address and
// installs the FIB_TABLE rule referencing it, preceded by a VLAN_TABLE
// rule when the original match carries a VLAN id.
func (c *Corsa) HandleRouteMod(entry *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	var out []*wire.RouteMod
	if v := c.vlanRuleFor(rm); v != nil {
		out = append(out, v)
	}
	out = append(out, c.groupRouteMod(rm, []values.Action{values.Output(entry.DPPort)}, entry.EthHW)...)
	return out
}

// HandleISLRouteMod resolves the group for the remote link's Ethernet
// address and installs the FIB_TABLE rule referencing it.
func (c *Corsa) HandleISLRouteMod(link *isl.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	actions := []values.Action{
		values.SetEthSrc(link.EthHW),
		values.SetEthDst(link.RemEthHW),
		values.Output(link.DPPort),
	}

	var out []*wire.RouteMod
	if v := c.vlanRuleFor(rm); v != nil {
		out = append(out, v)
	}
	out = append(out, c.groupRouteMod(rm, actions, link.RemEthHW)...)
	return out
}
