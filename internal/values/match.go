package values

import (
	"net"
	"net/netip"
)

// Match type tags. Ordering in a RouteMod's match list is preserved and
// meaningful: vendor pipelines filter and re-order by type.
const (
	MatchInPort uint8 = iota
	MatchEthertype
	MatchEthernet
	MatchVLANID
	MatchVLANTagged
	MatchIPv4
	MatchIPv6
	MatchIPProto
	MatchTCPSrc
	MatchTCPDst
	MatchUDPSrc
	MatchUDPDst
)

// vlanPresentBit marks a present (possibly zero) VLAN id, since VLAN_ID is a
// 12-bit field and 0 is a legal tag.
const vlanPresentBit = 1 << 15

// Match is a single matchable field inside a RouteMod.
type Match struct{ TLV }

// InPort matches the switch ingress port.
func InPort(port uint32) Match {
	return Match{TLV{Type: MatchInPort, Value: putUint32(port)}}
}

// InPort returns the ingress port, if this match carries one.
func (m Match) InPort() (uint32, bool) {
	if m.Type != MatchInPort {
		return 0, false
	}
	return getUint32(m.Value)
}

// Ethertype matches the Ethernet frame type.
func Ethertype(ethertype uint16) Match {
	return Match{TLV{Type: MatchEthertype, Value: putUint16(ethertype)}}
}

// Ethertype returns the matched ethertype, if present.
func (m Match) Ethertype() (uint16, bool) {
	if m.Type != MatchEthertype {
		return 0, false
	}
	return getUint16(m.Value)
}

// Ethernet matches a frame's source or destination hardware address,
// depending on the position of the match in the RouteMod (the vendor
// translator assigns the semantic).
func Ethernet(addr net.HardwareAddr) Match {
	return Match{TLV{Type: MatchEthernet, Value: putEthernet(addr)}}
}

// Ethernet returns the matched hardware address, if present.
func (m Match) Ethernet() (net.HardwareAddr, bool) {
	if m.Type != MatchEthernet {
		return nil, false
	}
	return getEthernet(m.Value)
}

// VLANID matches a 12-bit VLAN identifier. The id is always present in the
// match (the "presence bit" from the spec distinguishes this typed value
// from VLANTagged, which matches presence of any tag regardless of id).
func VLANID(id uint16) Match {
	v := (id & 0x0fff) | vlanPresentBit
	return Match{TLV{Type: MatchVLANID, Value: putUint16(v)}}
}

// VLANID returns the matched VLAN id, if present.
func (m Match) VLANID() (uint16, bool) {
	if m.Type != MatchVLANID {
		return 0, false
	}
	v, ok := getUint16(m.Value)
	if !ok || v&vlanPresentBit == 0 {
		return 0, false
	}
	return v & 0x0fff, true
}

// VLANTagged matches frames with or without any VLAN tag.
func VLANTagged(tagged bool) Match {
	v := byte(0)
	if tagged {
		v = 1
	}
	return Match{TLV{Type: MatchVLANTagged, Value: []byte{v}}}
}

// VLANTagged returns the matched tagged/untagged flag, if present.
func (m Match) VLANTagged() (bool, bool) {
	if m.Type != MatchVLANTagged || len(m.Value) != 1 {
		return false, false
	}
	return m.Value[0] != 0, true
}

// IPv4 matches an IPv4 prefix.
func IPv4(prefix netip.Prefix) Match {
	addr := prefix.Addr().As4()
	v := append(append([]byte{}, addr[:]...), byte(prefix.Bits()))
	return Match{TLV{Type: MatchIPv4, Value: v}}
}

// IPv4 returns the matched IPv4 prefix, if present.
func (m Match) IPv4() (netip.Prefix, bool) {
	if m.Type != MatchIPv4 || len(m.Value) != 5 {
		return netip.Prefix{}, false
	}
	var a [4]byte
	copy(a[:], m.Value[:4])
	return netip.PrefixFrom(netip.AddrFrom4(a), int(m.Value[4])), true
}

// IPv6 matches an IPv6 prefix.
func IPv6(prefix netip.Prefix) Match {
	addr := prefix.Addr().As16()
	v := append(append([]byte{}, addr[:]...), byte(prefix.Bits()))
	return Match{TLV{Type: MatchIPv6, Value: v}}
}

// IPv6 returns the matched IPv6 prefix, if present.
func (m Match) IPv6() (netip.Prefix, bool) {
	if m.Type != MatchIPv6 || len(m.Value) != 17 {
		return netip.Prefix{}, false
	}
	var a [16]byte
	copy(a[:], m.Value[:16])
	return netip.PrefixFrom(netip.AddrFrom16(a), int(m.Value[16])), true
}

// IPProto matches the IP protocol number.
func IPProto(proto uint8) Match {
	return Match{TLV{Type: MatchIPProto, Value: []byte{proto}}}
}

// IPProto returns the matched IP protocol, if present.
func (m Match) IPProto() (uint8, bool) {
	if m.Type != MatchIPProto || len(m.Value) != 1 {
		return 0, false
	}
	return m.Value[0], true
}

// TCPSrc matches the TCP source port.
func TCPSrc(port uint16) Match { return Match{TLV{Type: MatchTCPSrc, Value: putUint16(port)}} }

// TCPSrc returns the matched TCP source port, if present.
func (m Match) TCPSrc() (uint16, bool) {
	if m.Type != MatchTCPSrc {
		return 0, false
	}
	return getUint16(m.Value)
}

// TCPDst matches the TCP destination port.
func TCPDst(port uint16) Match { return Match{TLV{Type: MatchTCPDst, Value: putUint16(port)}} }

// TCPDst returns the matched TCP destination port, if present.
func (m Match) TCPDst() (uint16, bool) {
	if m.Type != MatchTCPDst {
		return 0, false
	}
	return getUint16(m.Value)
}

// UDPSrc matches the UDP source port.
func UDPSrc(port uint16) Match { return Match{TLV{Type: MatchUDPSrc, Value: putUint16(port)}} }

// UDPSrc returns the matched UDP source port, if present.
func (m Match) UDPSrc() (uint16, bool) {
	if m.Type != MatchUDPSrc {
		return 0, false
	}
	return getUint16(m.Value)
}

// UDPDst matches the UDP destination port.
func UDPDst(port uint16) Match { return Match{TLV{Type: MatchUDPDst, Value: putUint16(port)}} }

// UDPDst returns the matched UDP destination port, if present.
func (m Match) UDPDst() (uint16, bool) {
	if m.Type != MatchUDPDst {
		return 0, false
	}
	return getUint16(m.Value)
}

// Clone returns a deep copy of the match.
func (m Match) Clone() Match { return Match{m.TLV.Clone()} }

// CloneMatches deep-copies a slice of matches.
func CloneMatches(in []Match) []Match {
	out := make([]Match, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

// MatchFromTLV wraps a raw TLV decoded off the wire as a Match.
func MatchFromTLV(t TLV) Match { return Match{t} }
