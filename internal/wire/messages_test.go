package wire

import (
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/routeflow/rfcoord/internal/values"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	body := m.Encode()
	decoded, err := Decode(m.Type(), body)
	require.NoError(t, err)
	return decoded
}

func TestPortRegisterRoundTrip(t *testing.T) {
	mac, _ := net.ParseMAC("aa:aa:aa:aa:aa:aa")
	m := PortRegister{VMID: 0xa, VMPort: 1, HWAddress: mac}
	decoded := roundTrip(t, m)
	if diff := cmp.Diff(m, decoded); diff != "" {
		t.Errorf("round trip mismatch: %s", diff)
	}
}

func TestPortConfigRoundTrip(t *testing.T) {
	m := PortConfig{VMID: 0xa, VMPort: 1, OperationID: PortConfigMapSuccess}
	decoded := roundTrip(t, m)
	require.Equal(t, m, decoded)
}

func TestDatapathPortRegisterRoundTrip(t *testing.T) {
	m := DatapathPortRegister{CTID: 0, DPID: 0xff, DPPort: 2}
	decoded := roundTrip(t, m)
	require.Equal(t, m, decoded)
}

func TestDatapathDownRoundTrip(t *testing.T) {
	m := DatapathDown{CTID: 0, DPID: 0xff}
	decoded := roundTrip(t, m)
	require.Equal(t, m, decoded)
}

func TestVirtualPlaneMapRoundTrip(t *testing.T) {
	m := VirtualPlaneMap{VMID: 0xa, VMPort: 1, VSID: 0xbb, VSPort: 7}
	decoded := roundTrip(t, m)
	require.Equal(t, m, decoded)
}

func TestDataPlaneMapRoundTrip(t *testing.T) {
	m := DataPlaneMap{CTID: 0, DPID: 0xff, DPPort: 2, VSID: 0xbb, VSPort: 7}
	decoded := roundTrip(t, m)
	require.Equal(t, m, decoded)
}

func TestRouteModRoundTrip(t *testing.T) {
	mac, _ := net.ParseMAC("bb:bb:bb:bb:bb:bb")
	m := RouteMod{
		Op:      RouteModAdd,
		Dest:    0xff,
		Table:   2,
		Matches: []values.Match{values.Ethertype(0x0800), values.Ethernet(mac)},
		Actions: []values.Action{values.Output(3)},
		Options: []values.Option{values.CTID(0), values.Priority(10)},
	}
	decoded := roundTrip(t, m)
	if diff := cmp.Diff(m, decoded); diff != "" {
		t.Errorf("round trip mismatch: %s", diff)
	}
}

func TestRouteModCloneIsIndependent(t *testing.T) {
	mac, _ := net.ParseMAC("bb:bb:bb:bb:bb:bb")
	m := RouteMod{Matches: []values.Match{values.Ethernet(mac)}}
	c := m.Clone()
	c.Matches[0].Value[0] = 0xff
	require.Equal(t, byte(0xbb), m.Matches[0].Value[0])
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode(0xfe, nil)
	require.Error(t, err)
}

func TestIDStringRoundTrip(t *testing.T) {
	require.Equal(t, uint64(42), ParseID(IDString(42)))
	require.Equal(t, uint64(0), ParseID("not-a-number"))
}
