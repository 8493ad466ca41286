package values

import "net"

// Action type tags, grounded on the original RFAT_* enumeration: a subset
// ("ACTION_BIN") uses a plain 32-bit integer payload, set-MAC actions use
// 6-byte Ethernet payloads, and the remaining "empty" actions carry a
// zero-length payload.
const (
	ActionOutput uint8 = iota + 1
	ActionSetEthSrc
	ActionSetEthDst
	ActionPushMPLS
	ActionPopMPLS
	ActionSwapMPLS
	ActionPushVLANID
	ActionStripVLANDeferred
	ActionSwapVLANID
	ActionGroup
	ActionGoto
	ActionClearDeferred
	ActionSetVLANPCP
	ActionSetQueue
	ActionApplyMeter
	ActionGroupDeferred
	ActionSetVLANID
	ActionStripVLAN
	ActionController
	ActionDrop uint8 = 254
)

// actionBin is the set of action types whose payload is a raw 32-bit
// integer.
var actionBin = map[uint8]bool{
	ActionOutput:        true,
	ActionPushMPLS:      true,
	ActionSwapMPLS:      true,
	ActionPushVLANID:    true,
	ActionSwapVLANID:    true,
	ActionGroup:         true,
	ActionGoto:          true,
	ActionSetVLANPCP:    true,
	ActionSetQueue:      true,
	ActionApplyMeter:    true,
	ActionGroupDeferred: true,
	ActionSetVLANID:     true,
}

// actionEmpty is the set of action types with a zero-length payload.
var actionEmpty = map[uint8]bool{
	ActionPopMPLS:           true,
	ActionDrop:              true,
	ActionStripVLANDeferred: true,
	ActionStripVLAN:         true,
	ActionClearDeferred:     true,
	ActionController:        true,
}

// Action is a single forwarding action inside a RouteMod.
type Action struct{ TLV }

func intAction(t uint8, v uint32) Action { return Action{TLV{Type: t, Value: putUint32(v)}} }
func emptyAction(t uint8) Action         { return Action{TLV{Type: t}} }

// Output emits the packet out the given port.
func Output(port uint32) Action { return intAction(ActionOutput, port) }

// Controller sends the packet to the controller (OFPP_CONTROLLER, carried
// here as a dedicated action tag rather than an OUTPUT(CONTROLLER) pair, to
// keep the zero-length-payload invariant for every non-ACTION_BIN type).
func Controller() Action { return emptyAction(ActionController) }

// SetEthSrc rewrites the Ethernet source address.
func SetEthSrc(addr net.HardwareAddr) Action {
	return Action{TLV{Type: ActionSetEthSrc, Value: putEthernet(addr)}}
}

// SetEthDst rewrites the Ethernet destination address.
func SetEthDst(addr net.HardwareAddr) Action {
	return Action{TLV{Type: ActionSetEthDst, Value: putEthernet(addr)}}
}

// PushMPLS pushes an MPLS label.
func PushMPLS(label uint32) Action { return intAction(ActionPushMPLS, label) }

// PopMPLS pops the outermost MPLS label.
func PopMPLS() Action { return emptyAction(ActionPopMPLS) }

// SwapMPLS swaps the outermost MPLS label.
func SwapMPLS(label uint32) Action { return intAction(ActionSwapMPLS, label) }

// PushVLANID pushes a VLAN tag with the given id.
func PushVLANID(id uint32) Action { return intAction(ActionPushVLANID, id) }

// SwapVLANID pops and replaces the outermost VLAN tag.
func SwapVLANID(id uint32) Action { return intAction(ActionSwapVLANID, id) }

// SetVLANID rewrites the VLAN id of the current tag in place.
func SetVLANID(id uint32) Action { return intAction(ActionSetVLANID, id) }

// SetVLANPCP rewrites the VLAN priority bits.
func SetVLANPCP(pcp uint32) Action { return intAction(ActionSetVLANPCP, pcp) }

// StripVLAN removes the outermost VLAN tag immediately.
func StripVLAN() Action { return emptyAction(ActionStripVLAN) }

// StripVLANDeferred removes the outermost VLAN tag, deferred to the write
// stage of the pipeline.
func StripVLANDeferred() Action { return emptyAction(ActionStripVLANDeferred) }

// Group applies the action set of a group.
func Group(group uint32) Action { return intAction(ActionGroup, group) }

// GroupDeferred applies the action set of a group, deferred to the write
// stage.
func GroupDeferred(group uint32) Action { return intAction(ActionGroupDeferred, group) }

// Goto jumps execution to the given table.
func Goto(table uint32) Action { return intAction(ActionGoto, table) }

// ClearDeferred clears all previously applied deferred actions.
func ClearDeferred() Action { return emptyAction(ActionClearDeferred) }

// SetQueue selects the output queue.
func SetQueue(queue uint32) Action { return intAction(ActionSetQueue, queue) }

// ApplyMeter attaches a meter to the flow.
func ApplyMeter(meter uint32) Action { return intAction(ActionApplyMeter, meter) }

// Drop discards the packet.
func Drop() Action { return emptyAction(ActionDrop) }

// OutputPort returns the output port, if this action carries one.
func (a Action) OutputPort() (uint32, bool) {
	if a.Type != ActionOutput {
		return 0, false
	}
	return getUint32(a.Value)
}

// IntValue returns the 32-bit integer payload, if this action's type uses
// one.
func (a Action) IntValue() (uint32, bool) {
	if !actionBin[a.Type] {
		return 0, false
	}
	return getUint32(a.Value)
}

// EthValue returns the Ethernet address payload, if this action's type uses
// one.
func (a Action) EthValue() (net.HardwareAddr, bool) {
	if a.Type != ActionSetEthSrc && a.Type != ActionSetEthDst {
		return nil, false
	}
	return getEthernet(a.Value)
}

// Clone returns a deep copy of the action.
func (a Action) Clone() Action { return Action{a.TLV.Clone()} }

// CloneActions deep-copies a slice of actions.
func CloneActions(in []Action) []Action {
	out := make([]Action, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// ActionFromTLV wraps a raw TLV decoded off the wire as an Action.
func ActionFromTLV(t TLV) Action { return Action{t} }
