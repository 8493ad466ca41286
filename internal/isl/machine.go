package isl

import (
	"net"

	"github.com/routeflow/rfcoord/internal/rfconfig"
	"github.com/routeflow/rfcoord/internal/store"
)

// Machine is the ISL pairing sub-algorithm invoked from the association
// state machine when a registering datapath port matches RFISLConf
// rather than RFConfig.
type Machine struct {
	Table  Table
	Config *rfconfig.RFISLConf
}

// NewMachine builds a Machine over table, consulting cfg for pairing
// decisions.
func NewMachine(table Table, cfg *rfconfig.RFISLConf) *Machine {
	return &Machine{Table: table, Config: cfg}
}

// orientedSide is one configured link, reoriented so that "this" is the
// port that just registered and "far" is its known-from-config peer.
type orientedSide struct {
	vmID               uint64
	thisCT, thisDP     uint64
	thisPort           uint32
	thisEth            [6]byte
	farCT, farDP       uint64
	farPort            uint32
	farEth             [6]byte
}

func orient(cfg *rfconfig.RFISLConfEntry, ctID, dpID uint64, dpPort uint32) orientedSide {
	if cfg.CTID == ctID && cfg.DPID == dpID && cfg.DPPort == dpPort {
		return orientedSide{
			vmID:   cfg.VMID,
			thisCT: cfg.CTID, thisDP: cfg.DPID, thisPort: cfg.DPPort, thisEth: cfg.EthAddr,
			farCT: cfg.RemCT, farDP: cfg.RemID, farPort: cfg.RemPort, farEth: cfg.RemEth,
		}
	}
	return orientedSide{
		vmID:   cfg.VMID,
		thisCT: cfg.RemCT, thisDP: cfg.RemID, thisPort: cfg.RemPort, thisEth: cfg.RemEth,
		farCT: cfg.CTID, farDP: cfg.DPID, farPort: cfg.DPPort, farEth: cfg.EthAddr,
	}
}

func (m *Machine) findByLocalEth(eth [6]byte) *Entry {
	res := m.Table.Get(store.F("EthHW", net.HardwareAddr(eth[:])))
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

// RegisterPort handles the ISL half of DatapathPortRegister(ct_id, dp_id,
// dp_port), once the caller has confirmed there is no RFConfig entry for
// this port. For every configured link touching this port:
//
//   - if the far side has not registered yet, this side is inserted as a
//     fresh IDLE_DP_PORT half;
//   - if the far side already registered (found by its Ethernet
//     address), that half is completed to ACTIVE, and the symmetric
//     (far -> this) half is created already ACTIVE, since both physical
//     endpoints are now confirmed present.
func (m *Machine) RegisterPort(ctID, dpID uint64, dpPort uint32) []*Entry {
	var touched []*Entry

	for _, cfg := range m.Config.ByPort(ctID, dpID, dpPort) {
		s := orient(cfg, ctID, dpID, dpPort)

		far := m.findByLocalEth(s.farEth)
		if far == nil || far.Status() != StatusIdleDPPort {
			e := &Entry{}
			e.SetLocal(s.vmID, s.thisCT, s.thisDP, s.thisPort, net.HardwareAddr(s.thisEth[:]))
			m.Table.Put(e)
			touched = append(touched, e)
			continue
		}

		far.SetRemote(s.vmID, s.thisCT, s.thisDP, s.thisPort, net.HardwareAddr(s.thisEth[:]))
		m.Table.Put(far)
		touched = append(touched, far)

		sym := &Entry{}
		sym.SetLocal(s.vmID, s.thisCT, s.thisDP, s.thisPort, net.HardwareAddr(s.thisEth[:]))
		sym.SetRemote(s.vmID, s.farCT, s.farDP, s.farPort, net.HardwareAddr(s.farEth[:]))
		m.Table.Put(sym)
		touched = append(touched, sym)
	}

	return touched
}

// DatapathDown handles the ISL half of DatapathDown(ct_id, dp_id): local
// halves on that datapath demote to IDLE_REMOTE, halves whose remote side
// was that datapath demote to IDLE_DP_PORT.
func (m *Machine) DatapathDown(ctID, dpID uint64) {
	for _, e := range m.Table.Get(store.F("CTID", ctID), store.F("DPID", dpID)) {
		if e.HasLocal() {
			e.MakeIdleRemote()
			m.Table.Put(e)
		}
	}
	for _, e := range m.Table.Get(store.F("RemCT", ctID), store.F("RemID", dpID)) {
		if e.HasRemote() {
			e.MakeIdleDPPort()
			m.Table.Put(e)
		}
	}
}
