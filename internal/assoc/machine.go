package assoc

import (
	"net"

	"github.com/routeflow/rfcoord/internal/rfconfig"
	"github.com/routeflow/rfcoord/internal/store"
)

// Machine is the association state machine (C5): it pairs a virtual-side
// half-registration with a datapath-side half-registration into an
// active flow, consulting the static RFConfig wiring to decide whether
// two halves belong together.
type Machine struct {
	Table  Table
	Config *rfconfig.RFConfig
}

// NewMachine builds a Machine over table, consulting cfg for pairing
// decisions.
func NewMachine(table Table, cfg *rfconfig.RFConfig) *Machine {
	return &Machine{Table: table, Config: cfg}
}

func (m *Machine) findByDPPort(ctID, dpID uint64, dpPort uint32) *Entry {
	res := m.Table.Get(store.F("CTID", ctID), store.F("DPID", dpID), store.F("DPPort", dpPort))
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

func (m *Machine) findByVMPort(vmID uint64, vmPort uint32) *Entry {
	res := m.Table.Get(store.F("VMID", vmID), store.F("VMPort", vmPort))
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

// RegisterVMPort handles PortRegister(vm_id, vm_port, eth): if there is no
// configured wiring for (vm_id, vm_port), or the configured datapath side
// has not registered yet, an IDLE_VM_PORT entry is inserted; otherwise
// the waiting IDLE_DP_PORT entry is completed into ASSOCIATED.
func (m *Machine) RegisterVMPort(vmID uint64, vmPort uint32, eth net.HardwareAddr) (entry *Entry, associated bool) {
	cfg, ok := m.Config.ByVMPort(vmID, vmPort)
	if !ok {
		e := NewIdleVMPort(vmID, vmPort, eth)
		m.Table.Put(e)
		return e, false
	}

	existing := m.findByDPPort(cfg.CTID, cfg.DPID, cfg.DPPort)
	if existing == nil {
		e := NewIdleVMPort(vmID, vmPort, eth)
		m.Table.Put(e)
		return e, false
	}

	if existing.Status() != StatusIdleDPPort {
		e := NewIdleVMPort(vmID, vmPort, eth)
		m.Table.Put(e)
		return e, false
	}

	existing.SetVirtualSide(vmID, vmPort, eth)
	m.Table.Put(existing)
	return existing, true
}

// RegisterDPPort handles the RFConfig half of DatapathPortRegister(ct_id,
// dp_id, dp_port): the caller is responsible for first checking RFISLConf
// and is_rfvs before calling this. If there is no configured wiring, or
// no IDLE_VM_PORT is waiting, an IDLE_DP_PORT entry is inserted;
// otherwise the waiting half is completed into ASSOCIATED.
func (m *Machine) RegisterDPPort(ctID, dpID uint64, dpPort uint32) (entry *Entry, associated bool) {
	cfg, ok := m.Config.ByDPPort(ctID, dpID, dpPort)
	if !ok {
		e := NewIdleDPPort(ctID, dpID, dpPort)
		m.Table.Put(e)
		return e, false
	}

	existing := m.findByVMPort(cfg.VMID, cfg.VMPort)
	if existing == nil || existing.Status() != StatusIdleVMPort {
		e := NewIdleDPPort(ctID, dpID, dpPort)
		m.Table.Put(e)
		return e, false
	}

	existing.SetDatapathSide(ctID, dpID, dpPort)
	m.Table.Put(existing)
	return existing, true
}

// VirtualPlaneMap handles VirtualPlaneMap(vm_id, vm_port, vs_id, vs_port):
// an ASSOCIATED entry is activated; any other status is left untouched
// (ok is false).
func (m *Machine) VirtualPlaneMap(vmID uint64, vmPort uint32, vsID uint64, vsPort uint32) (entry *Entry, ok bool) {
	existing := m.findByVMPort(vmID, vmPort)
	if existing == nil || existing.Status() != StatusAssociated {
		return nil, false
	}
	existing.SetVirtualSwitch(vsID, vsPort)
	m.Table.Put(existing)
	return existing, true
}

// DatapathDown handles DatapathDown(ct_id, dp_id): every association on
// that datapath is demoted to IDLE_VM_PORT, preserving the virtual side
// for reuse. It returns the demoted entries, one PortConfig(RESET) is
// owed to each of their clients.
func (m *Machine) DatapathDown(ctID, dpID uint64) []*Entry {
	affected := m.Table.Get(store.F("CTID", ctID), store.F("DPID", dpID))

	var demoted []*Entry
	for _, e := range affected {
		if !e.HasDatapathSide() {
			continue
		}
		if !e.HasVirtualSide() {
			// A bare IDLE_DP_PORT half on this datapath has no client to
			// notify and nothing left once its one side is cleared.
			m.Table.Remove(e.GetID())
			continue
		}
		e.ClearDatapathSide()
		m.Table.Put(e)
		demoted = append(demoted, e)
	}
	return demoted
}
