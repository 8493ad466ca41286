package wire

import (
	"fmt"
	"net"

	"github.com/routeflow/rfcoord/internal/values"
)

// Message type bytes, used as the third frame of an IPC packet.
const (
	TypePortRegister byte = iota
	TypePortConfig
	TypeDatapathPortRegister
	TypeDatapathDown
	TypeVirtualPlaneMap
	TypeDataPlaneMap
	TypeRouteMod
)

// PortConfig operations.
const (
	PortConfigReset uint8 = iota
	PortConfigMapSuccess
	PortConfigRouteModAck
)

// RouteMod operations.
const (
	RouteModAdd uint8 = iota
	RouteModDelete
	RouteModAddGroup
	RouteModDeleteGroup
	RouteModAddMeter
	RouteModDeleteMeter
	RouteModController
)

// Message is implemented by every wire message type.
type Message interface {
	// Type returns this message's wire type byte.
	Type() byte
	// Encode serializes the message body (without the framing header).
	Encode() []byte
}

// Decode dispatches on typ and decodes body into the matching Message.
//
// An unrecognized type returns an error; callers handling inbound IPC
// traffic should log and drop per the "unknown RouteMod operation" /
// unrecognized message error-handling rule rather than propagate a fatal
// error.
func Decode(typ byte, body []byte) (Message, error) {
	doc, err := decodeDocument(body)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypePortRegister:
		return decodePortRegister(doc), nil
	case TypePortConfig:
		return decodePortConfig(doc), nil
	case TypeDatapathPortRegister:
		return decodeDatapathPortRegister(doc), nil
	case TypeDatapathDown:
		return decodeDatapathDown(doc), nil
	case TypeVirtualPlaneMap:
		return decodeVirtualPlaneMap(doc), nil
	case TypeDataPlaneMap:
		return decodeDataPlaneMap(doc), nil
	case TypeRouteMod:
		return decodeRouteMod(doc), nil
	default:
		return nil, fmt.Errorf("wire: unknown message type %d", typ)
	}
}

// ---- PortRegister ----

// PortRegister announces that a client's virtual interface is up.
type PortRegister struct {
	VMID      uint64
	VMPort    uint32
	HWAddress net.HardwareAddr
}

func (m PortRegister) Type() byte { return TypePortRegister }

func (m PortRegister) Encode() []byte {
	d := newDocument()
	d.putScalar("vm_id", int64(m.VMID))
	d.putScalar("vm_port", int64(m.VMPort))
	d.putString("hwaddress", m.HWAddress.String())
	return d.encode()
}

func decodePortRegister(d *document) PortRegister {
	mac, _ := net.ParseMAC(d.str("hwaddress"))
	return PortRegister{
		VMID:      uint64(d.scalar("vm_id")),
		VMPort:    uint32(d.scalar("vm_port")),
		HWAddress: mac,
	}
}

// ---- PortConfig ----

// PortConfig is a coordinator-to-client control message.
type PortConfig struct {
	VMID        uint64
	VMPort      uint32
	OperationID uint8
}

func (m PortConfig) Type() byte { return TypePortConfig }

func (m PortConfig) Encode() []byte {
	d := newDocument()
	d.putScalar("vm_id", int64(m.VMID))
	d.putScalar("vm_port", int64(m.VMPort))
	d.putScalar("operation_id", int64(m.OperationID))
	return d.encode()
}

func decodePortConfig(d *document) PortConfig {
	return PortConfig{
		VMID:        uint64(d.scalar("vm_id")),
		VMPort:      uint32(d.scalar("vm_port")),
		OperationID: uint8(d.scalar("operation_id")),
	}
}

// ---- DatapathPortRegister ----

// DatapathPortRegister announces that a datapath exposed a port.
type DatapathPortRegister struct {
	CTID   uint64
	DPID   uint64
	DPPort uint32
}

func (m DatapathPortRegister) Type() byte { return TypeDatapathPortRegister }

func (m DatapathPortRegister) Encode() []byte {
	d := newDocument()
	d.putScalar("ct_id", int64(m.CTID))
	d.putScalar("dp_id", int64(m.DPID))
	d.putScalar("dp_port", int64(m.DPPort))
	return d.encode()
}

func decodeDatapathPortRegister(d *document) DatapathPortRegister {
	return DatapathPortRegister{
		CTID:   uint64(d.scalar("ct_id")),
		DPID:   uint64(d.scalar("dp_id")),
		DPPort: uint32(d.scalar("dp_port")),
	}
}

// ---- DatapathDown ----

// DatapathDown announces that a datapath left.
type DatapathDown struct {
	CTID uint64
	DPID uint64
}

func (m DatapathDown) Type() byte { return TypeDatapathDown }

func (m DatapathDown) Encode() []byte {
	d := newDocument()
	d.putScalar("ct_id", int64(m.CTID))
	d.putScalar("dp_id", int64(m.DPID))
	return d.encode()
}

func decodeDatapathDown(d *document) DatapathDown {
	return DatapathDown{
		CTID: uint64(d.scalar("ct_id")),
		DPID: uint64(d.scalar("dp_id")),
	}
}

// ---- VirtualPlaneMap ----

// VirtualPlaneMap reports that a virtual interface surfaced on a specific
// virtual-switch port.
type VirtualPlaneMap struct {
	VMID   uint64
	VMPort uint32
	VSID   uint64
	VSPort uint32
}

func (m VirtualPlaneMap) Type() byte { return TypeVirtualPlaneMap }

func (m VirtualPlaneMap) Encode() []byte {
	d := newDocument()
	d.putScalar("vm_id", int64(m.VMID))
	d.putScalar("vm_port", int64(m.VMPort))
	d.putScalar("vs_id", int64(m.VSID))
	d.putScalar("vs_port", int64(m.VSPort))
	return d.encode()
}

func decodeVirtualPlaneMap(d *document) VirtualPlaneMap {
	return VirtualPlaneMap{
		VMID:   uint64(d.scalar("vm_id")),
		VMPort: uint32(d.scalar("vm_port")),
		VSID:   uint64(d.scalar("vs_id")),
		VSPort: uint32(d.scalar("vs_port")),
	}
}

// ---- DataPlaneMap ----

// DataPlaneMap instructs the proxy to splice a physical port to a
// virtual-switch port.
type DataPlaneMap struct {
	CTID   uint64
	DPID   uint64
	DPPort uint32
	VSID   uint64
	VSPort uint32
}

func (m DataPlaneMap) Type() byte { return TypeDataPlaneMap }

func (m DataPlaneMap) Encode() []byte {
	d := newDocument()
	d.putScalar("ct_id", int64(m.CTID))
	d.putScalar("dp_id", int64(m.DPID))
	d.putScalar("dp_port", int64(m.DPPort))
	d.putScalar("vs_id", int64(m.VSID))
	d.putScalar("vs_port", int64(m.VSPort))
	return d.encode()
}

func decodeDataPlaneMap(d *document) DataPlaneMap {
	return DataPlaneMap{
		CTID:   uint64(d.scalar("ct_id")),
		DPID:   uint64(d.scalar("dp_id")),
		DPPort: uint32(d.scalar("dp_port")),
		VSID:   uint64(d.scalar("vs_id")),
		VSPort: uint32(d.scalar("vs_port")),
	}
}

// ---- RouteMod ----

// RouteMod carries a flow modification in either direction. Dest is either
// a client id or a datapath id: the translator swaps the former for the
// latter, and every outbound RouteMod must carry an integer dp_id (never a
// vm_id, per the testable invariant in the spec).
type RouteMod struct {
	Op      uint8
	Dest    uint64
	VMPort  uint32
	Table   uint32
	Group   uint32
	Meter   uint32
	Flags   uint32
	Matches []values.Match
	Actions []values.Action
	Options []values.Option
	Bands   []values.Band
}

func (m RouteMod) Type() byte { return TypeRouteMod }

func (m RouteMod) Encode() []byte {
	d := newDocument()
	d.putScalar("mod", int64(m.Op))
	d.putScalar("id", int64(m.Dest))
	d.putScalar("vm_port", int64(m.VMPort))
	d.putScalar("table", int64(m.Table))
	d.putScalar("group", int64(m.Group))
	d.putScalar("meter", int64(m.Meter))
	d.putScalar("flags", int64(m.Flags))
	d.putTLVs("matches", matchesToTLVs(m.Matches))
	d.putTLVs("actions", actionsToTLVs(m.Actions))
	d.putTLVs("options", optionsToTLVs(m.Options))
	d.putTLVs("bands", bandsToTLVs(m.Bands))
	return d.encode()
}

func decodeRouteMod(d *document) RouteMod {
	return RouteMod{
		Op:      uint8(d.scalar("mod")),
		Dest:    uint64(d.scalar("id")),
		VMPort:  uint32(d.scalar("vm_port")),
		Table:   uint32(d.scalar("table")),
		Group:   uint32(d.scalar("group")),
		Meter:   uint32(d.scalar("meter")),
		Flags:   uint32(d.scalar("flags")),
		Matches: tlvsToMatches(d.tlvs("matches")),
		Actions: tlvsToActions(d.tlvs("actions")),
		Options: tlvsToOptions(d.tlvs("options")),
		Bands:   tlvsToBands(d.tlvs("bands")),
	}
}

// Clone returns a deep copy of the RouteMod.
//
// Every translator that re-emits a RouteMod towards a second datapath (the
// fan-out in handle_route_mod / handle_isl_route_mod) must clone first: the
// match/action lists are otherwise shared slices, and an in-place append or
// mutation on one copy would alias into the other.
func (m RouteMod) Clone() RouteMod {
	c := m
	c.Matches = values.CloneMatches(m.Matches)
	c.Actions = values.CloneActions(m.Actions)
	c.Options = values.CloneOptions(m.Options)
	c.Bands = values.CloneBands(m.Bands)
	return c
}

func matchesToTLVs(in []values.Match) []values.TLV {
	out := make([]values.TLV, len(in))
	for i, m := range in {
		out[i] = m.TLV
	}
	return out
}

// The tlvsTo* helpers decode an empty list to nil, so a RouteMod whose
// lists were nil before Encode compares equal after Decode.
func tlvsToMatches(in []values.TLV) []values.Match {
	if len(in) == 0 {
		return nil
	}
	out := make([]values.Match, len(in))
	for i, t := range in {
		out[i] = values.MatchFromTLV(t)
	}
	return out
}

func actionsToTLVs(in []values.Action) []values.TLV {
	out := make([]values.TLV, len(in))
	for i, a := range in {
		out[i] = a.TLV
	}
	return out
}

func tlvsToActions(in []values.TLV) []values.Action {
	if len(in) == 0 {
		return nil
	}
	out := make([]values.Action, len(in))
	for i, t := range in {
		out[i] = values.ActionFromTLV(t)
	}
	return out
}

func optionsToTLVs(in []values.Option) []values.TLV {
	out := make([]values.TLV, len(in))
	for i, o := range in {
		out[i] = o.TLV
	}
	return out
}

func tlvsToOptions(in []values.TLV) []values.Option {
	if len(in) == 0 {
		return nil
	}
	out := make([]values.Option, len(in))
	for i, t := range in {
		out[i] = values.OptionFromTLV(t)
	}
	return out
}

func bandsToTLVs(in []values.Band) []values.TLV {
	out := make([]values.TLV, len(in))
	for i, b := range in {
		out[i] = b.TLV
	}
	return out
}

func tlvsToBands(in []values.TLV) []values.Band {
	if len(in) == 0 {
		return nil
	}
	out := make([]values.Band, len(in))
	for i, t := range in {
		out[i] = values.BandFromTLV(t)
	}
	return out
}
