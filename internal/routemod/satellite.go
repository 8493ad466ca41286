package routemod

import (
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/values"
	"github.com/routeflow/rfcoord/internal/wire"
)

// Satellite extends Default, overriding only HandleISLRouteMod: ISL rules
// are installed once per remote Ethernet address, for both IPv4 and IPv6
// ethertypes at default priority, rather than re-derived from whatever
// ethertype the triggering RouteMod happened to carry.
type Satellite struct {
	*Default

	sentISLDL map[string]bool
}

// NewSatellite builds the satellite pipeline translator.
func NewSatellite(ctx Context) *Satellite {
	return &Satellite{Default: NewDefault(ctx), sentISLDL: map[string]bool{}}
}

// HandleISLRouteMod installs the ISL forwarding rule at most once per
// remote Ethernet address, covering both ETHERTYPE_IP and ETHERTYPE_IPV6
// regardless of which ethertype triggered the call.
func (s *Satellite) HandleISLRouteMod(link *isl.Entry, rm *wire.RouteMod) []*wire.RouteMod {
	key := link.RemEthHW.String()
	if s.sentISLDL[key] {
		return nil
	}
	s.sentISLDL[key] = true

	actions := []values.Action{
		values.SetEthSrc(link.EthHW),
		values.SetEthDst(link.RemEthHW),
		values.Output(link.DPPort),
	}

	var out []*wire.RouteMod
	for _, ethertype := range []uint16{ethertypeIPv4, ethertypeIPv6} {
		for _, other := range s.otherActivePorts(link.DPPort) {
			out = append(out, &wire.RouteMod{
				Op:   rm.Op,
				Dest: s.ctx.DPID,
				Matches: []values.Match{
					values.Ethertype(ethertype),
					values.Ethernet(other.eth),
					values.InPort(other.dpPort),
				},
				Actions: values.CloneActions(actions),
				Options: []values.Option{values.Priority(priorityDefault)},
			})
		}
	}
	return out
}
