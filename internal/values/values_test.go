package values

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMatchRoundTrip(t *testing.T) {
	mac, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)

	cases := []Match{
		InPort(7),
		Ethertype(0x0800),
		Ethernet(mac),
		VLANID(42),
		VLANTagged(true),
		VLANTagged(false),
		IPv4(netip.MustParsePrefix("10.0.0.0/24")),
		IPv6(netip.MustParsePrefix("fe80::/64")),
		IPProto(6),
		TCPSrc(80),
		TCPDst(443),
		UDPSrc(53),
		UDPDst(123),
	}

	for _, m := range cases {
		decoded := MatchFromTLV(m.TLV.Clone())
		if diff := cmp.Diff(m, decoded); diff != "" {
			t.Errorf("round trip mismatch for type %d: %s", m.Type, diff)
		}
	}
}

func TestMatchAccessorMismatch(t *testing.T) {
	m := Ethertype(0x0800)
	_, ok := m.InPort()
	require.False(t, ok)
}

func TestVLANIDZeroIsPresent(t *testing.T) {
	m := VLANID(0)
	id, ok := m.VLANID()
	require.True(t, ok)
	require.Equal(t, uint16(0), id)
}

func TestActionRoundTrip(t *testing.T) {
	mac, err := net.ParseMAC("11:22:33:44:55:66")
	require.NoError(t, err)

	cases := []Action{
		Output(3),
		Controller(),
		SetEthSrc(mac),
		SetEthDst(mac),
		PushMPLS(100),
		PopMPLS(),
		SwapMPLS(200),
		PushVLANID(10),
		SwapVLANID(20),
		SetVLANID(30),
		SetVLANPCP(1),
		StripVLAN(),
		StripVLANDeferred(),
		Group(5),
		GroupDeferred(6),
		Goto(2),
		ClearDeferred(),
		SetQueue(1),
		ApplyMeter(9),
		Drop(),
	}

	for _, a := range cases {
		decoded := ActionFromTLV(a.TLV.Clone())
		if diff := cmp.Diff(a, decoded); diff != "" {
			t.Errorf("round trip mismatch for type %d: %s", a.Type, diff)
		}
	}
}

func TestActionEmptyPayloadForUnknownType(t *testing.T) {
	a := Action{TLV{Type: 250}}
	require.Empty(t, a.Value)
}

func TestOptionRoundTrip(t *testing.T) {
	cases := []Option{
		Priority(100),
		CTID(5),
		IdleTimeout(30),
		HardTimeout(60),
	}

	for _, o := range cases {
		decoded := OptionFromTLV(o.TLV.Clone())
		if diff := cmp.Diff(o, decoded); diff != "" {
			t.Errorf("round trip mismatch for type %d: %s", o.Type, diff)
		}
	}
}

func TestHasCTID(t *testing.T) {
	require.False(t, HasCTID(nil))
	require.True(t, HasCTID([]Option{CTID(1)}))
}

func TestBandRoundTrip(t *testing.T) {
	cases := []Band{
		MeterDrop(1000, 2000),
		DSCPRemark(1000, 2000, 5),
		Experimenter(1000, 2000, 0xdeadbeef),
	}

	for _, b := range cases {
		decoded := BandFromTLV(b.TLV.Clone())
		if diff := cmp.Diff(b, decoded); diff != "" {
			t.Errorf("round trip mismatch for type %d: %s", b.Type, diff)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := Ethernet(net.HardwareAddr{1, 2, 3, 4, 5, 6})
	c := m.Clone()
	c.Value[0] = 0xff
	require.Equal(t, byte(1), m.Value[0])
}
