// Package assoc implements the association state machine (C5): pairing a
// virtual-side half-registration with a datapath-side half-registration
// into an active flow. The ISL pairing sub-algorithm lives in package isl.
package assoc

import (
	"net"

	"github.com/routeflow/rfcoord/internal/store"
)

// Status is the derived state of an Entry, computed from which fields are
// populated.
type Status int

const (
	// StatusIdleVMPort: only the virtual side is set.
	StatusIdleVMPort Status = iota
	// StatusIdleDPPort: only the datapath side is set.
	StatusIdleDPPort
	// StatusAssociated: both sides set, virtual-switch fields absent.
	StatusAssociated
	// StatusActive: both sides set, virtual-switch fields set.
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusIdleVMPort:
		return "IDLE_VM_PORT"
	case StatusIdleDPPort:
		return "IDLE_DP_PORT"
	case StatusAssociated:
		return "ASSOCIATED"
	case StatusActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Entry is the binding between one virtual-side endpoint (vm_id, vm_port,
// eth_addr) and one datapath-side endpoint (ct_id, dp_id, dp_port),
// optionally bridged by a virtual-switch port (vs_id, vs_port).
type Entry struct {
	ID store.ID

	VMID   uint64
	VMPort uint32
	EthHW  net.HardwareAddr

	CTID   uint64
	DPID   uint64
	DPPort uint32

	VSID   uint64
	VSPort uint32

	hasVM bool
	hasDP bool
	hasVS bool
}

// GetID implements store.Entry.
func (e *Entry) GetID() store.ID { return e.ID }

// SetID implements store.Entry.
func (e *Entry) SetID(id store.ID) { e.ID = id }

// HasVirtualSide reports whether the virtual-side fields are populated.
func (e *Entry) HasVirtualSide() bool { return e.hasVM }

// HasDatapathSide reports whether the datapath-side fields are populated.
func (e *Entry) HasDatapathSide() bool { return e.hasDP }

// HasVirtualSwitch reports whether the virtual-switch bridge fields are
// populated.
func (e *Entry) HasVirtualSwitch() bool { return e.hasVS }

// Status derives the entry's status from field occupancy.
func (e *Entry) Status() Status {
	switch {
	case e.hasVM && e.hasDP && e.hasVS:
		return StatusActive
	case e.hasVM && e.hasDP:
		return StatusAssociated
	case e.hasDP:
		return StatusIdleDPPort
	default:
		return StatusIdleVMPort
	}
}

// SetVirtualSide stamps the virtual-side fields.
func (e *Entry) SetVirtualSide(vmID uint64, vmPort uint32, eth net.HardwareAddr) {
	e.VMID, e.VMPort, e.EthHW = vmID, vmPort, eth
	e.hasVM = true
}

// SetDatapathSide stamps the datapath-side fields.
func (e *Entry) SetDatapathSide(ctID, dpID uint64, dpPort uint32) {
	e.CTID, e.DPID, e.DPPort = ctID, dpID, dpPort
	e.hasDP = true
}

// SetVirtualSwitch stamps the virtual-switch bridge fields.
func (e *Entry) SetVirtualSwitch(vsID uint64, vsPort uint32) {
	e.VSID, e.VSPort = vsID, vsPort
	e.hasVS = true
}

// ClearDatapathSide demotes the entry to IDLE_VM_PORT, used on a
// datapath-down event: the virtual side is preserved for reuse.
func (e *Entry) ClearDatapathSide() {
	e.CTID, e.DPID, e.DPPort = 0, 0, 0
	e.hasDP = false
	e.VSID, e.VSPort = 0, 0
	e.hasVS = false
}

// NewIdleVMPort creates a new entry with only the virtual side set.
func NewIdleVMPort(vmID uint64, vmPort uint32, eth net.HardwareAddr) *Entry {
	e := &Entry{}
	e.SetVirtualSide(vmID, vmPort, eth)
	return e
}

// NewIdleDPPort creates a new entry with only the datapath side set.
func NewIdleDPPort(ctID, dpID uint64, dpPort uint32) *Entry {
	e := &Entry{}
	e.SetDatapathSide(ctID, dpID, dpPort)
	return e
}

// Table is the association table.
type Table = store.Table[*Entry]

// NewMemoryTable builds the default in-memory association table.
func NewMemoryTable() Table {
	return store.NewMemoryTable[*Entry]()
}
