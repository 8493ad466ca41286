// Package isl implements the ISL (inter-switch link) entity table: one
// entry per directed half of a link between two datapaths.
package isl

import (
	"net"

	"github.com/routeflow/rfcoord/internal/store"
)

// Status is the derived state of an Entry.
type Status int

const (
	// StatusIdleDPPort: only the local side is set.
	StatusIdleDPPort Status = iota
	// StatusIdleRemote: only the remote side is set.
	StatusIdleRemote
	// StatusActive: both sides set.
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusIdleDPPort:
		return "IDLE_DP_PORT"
	case StatusIdleRemote:
		return "IDLE_REMOTE"
	case StatusActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Entry is one directed half of an inter-switch link.
type Entry struct {
	ID store.ID

	// VMID is the routing-instance id both sides of the link represent.
	VMID uint64

	CTID   uint64
	DPID   uint64
	DPPort uint32
	EthHW  net.HardwareAddr

	RemCT    uint64
	RemID    uint64
	RemPort  uint32
	RemEthHW net.HardwareAddr

	hasLocal  bool
	hasRemote bool
}

// GetID implements store.Entry.
func (e *Entry) GetID() store.ID { return e.ID }

// SetID implements store.Entry.
func (e *Entry) SetID(id store.ID) { e.ID = id }

// HasLocal reports whether the local side fields are populated.
func (e *Entry) HasLocal() bool { return e.hasLocal }

// HasRemote reports whether the remote side fields are populated.
func (e *Entry) HasRemote() bool { return e.hasRemote }

// Status derives the entry's status from field occupancy.
func (e *Entry) Status() Status {
	switch {
	case e.hasLocal && e.hasRemote:
		return StatusActive
	case e.hasLocal:
		return StatusIdleDPPort
	default:
		return StatusIdleRemote
	}
}

// SetLocal stamps the local side fields.
func (e *Entry) SetLocal(vmID, ctID, dpID uint64, dpPort uint32, eth net.HardwareAddr) {
	e.VMID, e.CTID, e.DPID, e.DPPort, e.EthHW = vmID, ctID, dpID, dpPort, eth
	e.hasLocal = true
}

// SetRemote stamps the remote side fields.
func (e *Entry) SetRemote(vmID, remCT, remID uint64, remPort uint32, remEth net.HardwareAddr) {
	e.VMID, e.RemCT, e.RemID, e.RemPort, e.RemEthHW = vmID, remCT, remID, remPort, remEth
	e.hasRemote = true
}

// MakeIdleDPPort demotes this entry to IDLE_DP_PORT, clearing the remote
// side.
func (e *Entry) MakeIdleDPPort() {
	e.RemCT, e.RemID, e.RemPort, e.RemEthHW = 0, 0, 0, nil
	e.hasRemote = false
}

// MakeIdleRemote demotes this entry to IDLE_REMOTE, clearing the local
// side.
func (e *Entry) MakeIdleRemote() {
	e.CTID, e.DPID, e.DPPort, e.EthHW = 0, 0, 0, nil
	e.hasLocal = false
}

// Table is the ISL table.
type Table = store.Table[*Entry]

// NewMemoryTable builds the default in-memory ISL table.
func NewMemoryTable() Table {
	return store.NewMemoryTable[*Entry]()
}
