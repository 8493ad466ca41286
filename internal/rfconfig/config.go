// Package rfconfig loads and indexes the three static configuration
// tables: RFConfig (intended virtual-to-datapath wiring), RFISLConf
// (intended inter-switch links) and RFFPConf (declared fastpath links to
// the controller). They are loaded once at startup from CSV files and are
// read-only thereafter, except for the fastpath annotation fields the
// allocator (C6) attaches in place.
package rfconfig

// Entry is the common fastpath annotation carried by every static config
// entry: fp_label (the VLAN label assigned to a virtual port) and fp_master
// (the datapath id of the parent node on the fastpath spanning path, when
// this entry sits on an ISL/fastpath link).
type Entry struct {
	fpLabel    uint16
	hasFPLabel bool

	fpMaster    uint64
	hasFPMaster bool
}

// FPLabel returns the assigned fastpath label, if any.
func (e *Entry) FPLabel() (uint16, bool) { return e.fpLabel, e.hasFPLabel }

// SetFPLabel assigns a fastpath label.
func (e *Entry) SetFPLabel(label uint16) { e.fpLabel, e.hasFPLabel = label, true }

// FPMaster returns the parent datapath id on the fastpath spanning path, if
// any. A root fastpath link carries its own dp_id; a link whose far
// datapath was already reached by an earlier wave, or that was never
// reached, has none.
func (e *Entry) FPMaster() (uint64, bool) { return e.fpMaster, e.hasFPMaster }

// SetFPMaster sets the parent datapath id.
func (e *Entry) SetFPMaster(dpID uint64) { e.fpMaster, e.hasFPMaster = dpID, true }

// ClearFPMaster marks this entry as carrying no fastpath parent.
func (e *Entry) ClearFPMaster() { e.fpMaster, e.hasFPMaster = 0, false }

// RFConfigEntry is one intended virtual-to-datapath wiring:
// (vm_id, vm_port) <-> (ct_id, dp_id, dp_port).
type RFConfigEntry struct {
	Entry

	VMID   uint64
	VMPort uint32
	CTID   uint64
	DPID   uint64
	DPPort uint32
}

// RFConfig is the intended virtual-to-datapath wiring, loaded once from
// config.csv.
type RFConfig struct {
	entries []*RFConfigEntry
}

// NewRFConfig wraps a slice of entries.
func NewRFConfig(entries []*RFConfigEntry) *RFConfig {
	return &RFConfig{entries: entries}
}

// All returns every configured entry.
func (c *RFConfig) All() []*RFConfigEntry { return c.entries }

// ByVMPort looks up the configured entry for a given virtual endpoint.
func (c *RFConfig) ByVMPort(vmID uint64, vmPort uint32) (*RFConfigEntry, bool) {
	for _, e := range c.entries {
		if e.VMID == vmID && e.VMPort == vmPort {
			return e, true
		}
	}
	return nil, false
}

// ByDPPort looks up the configured entry for a given datapath endpoint.
func (c *RFConfig) ByDPPort(ctID, dpID uint64, dpPort uint32) (*RFConfigEntry, bool) {
	for _, e := range c.entries {
		if e.CTID == ctID && e.DPID == dpID && e.DPPort == dpPort {
			return e, true
		}
	}
	return nil, false
}

// ForDP returns every entry configured on the given datapath.
func (c *RFConfig) ForDP(ctID, dpID uint64) []*RFConfigEntry {
	var out []*RFConfigEntry
	for _, e := range c.entries {
		if e.CTID == ctID && e.DPID == dpID {
			out = append(out, e)
		}
	}
	return out
}

// RFISLConfEntry is one intended inter-switch link, from the local side's
// perspective.
type RFISLConfEntry struct {
	Entry

	VMID    uint64
	CTID    uint64
	DPID    uint64
	DPPort  uint32
	EthAddr [6]byte
	RemCT   uint64
	RemID   uint64
	RemPort uint32
	RemEth  [6]byte

	// FastPaths is the list of (label, vm_port) pairs this ISL link
	// carries upward, filled in by the fastpath allocator.
	FastPaths []FastPathPort
}

// RFISLConf is the intended set of ISLs, loaded once from islconf.csv.
type RFISLConf struct {
	entries []*RFISLConfEntry
}

// NewRFISLConf wraps a slice of entries.
func NewRFISLConf(entries []*RFISLConfEntry) *RFISLConf {
	return &RFISLConf{entries: entries}
}

// All returns every configured ISL.
func (c *RFISLConf) All() []*RFISLConfEntry { return c.entries }

// ByPort returns every configured ISL entry whose local or remote side
// matches the given datapath port, used to decide which side of the
// configured link a just-registered port represents.
func (c *RFISLConf) ByPort(ctID, dpID uint64, dpPort uint32) []*RFISLConfEntry {
	var out []*RFISLConfEntry
	for _, e := range c.entries {
		if (e.CTID == ctID && e.DPID == dpID && e.DPPort == dpPort) ||
			(e.RemCT == ctID && e.RemID == dpID && e.RemPort == dpPort) {
			out = append(out, e)
		}
	}
	return out
}

// ForDP returns every configured ISL entry touching the given datapath,
// from either side.
func (c *RFISLConf) ForDP(ctID, dpID uint64) []*RFISLConfEntry {
	var out []*RFISLConfEntry
	for _, e := range c.entries {
		if (e.CTID == ctID && e.DPID == dpID) || (e.RemCT == ctID && e.RemID == dpID) {
			out = append(out, e)
		}
	}
	return out
}

// RFFPConfEntry is one declared fastpath link to the controller.
type RFFPConfEntry struct {
	Entry

	CTID    uint64
	DPID    uint64
	DPPort  uint32
	DP0Port uint32

	// FastPaths is the list of (label, vm_port) pairs this link carries
	// upward, filled in by the fastpath allocator.
	FastPaths []FastPathPort
}

// FastPathPort is a single (label, vm_port) pair carried by a fastpath
// link.
type FastPathPort struct {
	Label  uint16
	VMPort uint32
}

// RFFPConf is the declared set of fastpath links to the controller, loaded
// once from fastpaths.csv.
type RFFPConf struct {
	entries []*RFFPConfEntry
}

// NewRFFPConf wraps a slice of entries.
func NewRFFPConf(entries []*RFFPConfEntry) *RFFPConf {
	return &RFFPConf{entries: entries}
}

// All returns every declared fastpath link.
func (c *RFFPConf) All() []*RFFPConfEntry { return c.entries }

// Enabled reports whether fastpath mode is active: the canonical rule is
// "enabled iff RFFPConf contains at least one entry" (see design note §9 on
// the conflicting fpconf-truthiness / enabled-flag checks in the source).
func (c *RFFPConf) Enabled() bool { return len(c.entries) > 0 }

// ForDP returns the declared fastpath link for the given datapath, if any.
func (c *RFFPConf) ForDP(ctID, dpID uint64) (*RFFPConfEntry, bool) {
	for _, e := range c.entries {
		if e.CTID == ctID && e.DPID == dpID {
			return e, true
		}
	}
	return nil, false
}
