// Package fastpath implements the fastpath label allocator (C6): it
// computes, for every attached virtual port, a unique VLAN label and
// stamps the spanning path of ISL/fastpath links that carries traffic
// back up to the controller-facing link.
package fastpath

import (
	"fmt"

	"github.com/routeflow/rfcoord/internal/bitset"
	"github.com/routeflow/rfcoord/internal/rfconfig"
)

// minLabel and maxLabel bound the VLAN fastpath label space: labels 0 and
// 1 are reserved, and the space is 11-bit (< 2048).
const (
	minLabel = 2
	maxLabel = 2048
)

type dpKey struct {
	ct, dp uint64
}

// link abstracts the two kinds of entry that carry a fastpath annotation
// across a hop: a declared RFFPConfEntry (the root, reaching the
// controller) or an RFISLConfEntry (an inter-switch hop).
type link interface {
	setFPMaster(dpID uint64)
	setFPMasterNone()
	appendFastPath(label uint16, vmPort uint32)
	appendFastPaths(fp []rfconfig.FastPathPort)
	fastPaths() []rfconfig.FastPathPort
}

type fpLink struct{ e *rfconfig.RFFPConfEntry }

func (l fpLink) setFPMaster(dpID uint64)            { l.e.SetFPMaster(dpID) }
func (l fpLink) setFPMasterNone()                   { l.e.ClearFPMaster() }
func (l fpLink) fastPaths() []rfconfig.FastPathPort { return l.e.FastPaths }
func (l fpLink) appendFastPath(label uint16, vmPort uint32) {
	l.e.FastPaths = append(l.e.FastPaths, rfconfig.FastPathPort{Label: label, VMPort: vmPort})
}
func (l fpLink) appendFastPaths(fp []rfconfig.FastPathPort) { l.e.FastPaths = append(l.e.FastPaths, fp...) }

type islLink struct{ e *rfconfig.RFISLConfEntry }

func (l islLink) setFPMaster(dpID uint64)            { l.e.SetFPMaster(dpID) }
func (l islLink) setFPMasterNone()                   { l.e.ClearFPMaster() }
func (l islLink) fastPaths() []rfconfig.FastPathPort { return l.e.FastPaths }
func (l islLink) appendFastPath(label uint16, vmPort uint32) {
	l.e.FastPaths = append(l.e.FastPaths, rfconfig.FastPathPort{Label: label, VMPort: vmPort})
}
func (l islLink) appendFastPaths(fp []rfconfig.FastPathPort) { l.e.FastPaths = append(l.e.FastPaths, fp...) }

// otherSide returns the dp on the far side of an ISL entry from "from".
func otherSide(e *rfconfig.RFISLConfEntry, from dpKey) dpKey {
	if e.CTID == from.ct && e.DPID == from.dp {
		return dpKey{e.RemCT, e.RemID}
	}
	return dpKey{e.CTID, e.DPID}
}

type node struct {
	dp       dpKey
	link     link
	parent   *node
	arrivedVia *rfconfig.RFISLConfEntry // nil for root nodes
}

// Allocator assigns fastpath VLAN labels and stamps the spanning path
// annotation across RFConfig, RFISLConf and RFFPConf.
type Allocator struct {
	used    bitset.TinyBitset
	next    uint32
}

// NewAllocator builds an empty label allocator.
func NewAllocator() *Allocator {
	return &Allocator{next: minLabel}
}

func (a *Allocator) allocate() (uint16, error) {
	for a.next < maxLabel {
		idx := a.next
		a.next++
		if !a.used.Contains(idx) {
			a.used.Insert(idx)
			return uint16(idx), nil
		}
	}
	return 0, fmt.Errorf("fastpath label space exhausted (max %d labels)", maxLabel-minLabel)
}

// Run computes the fastpath spanning path: every RFFPConfEntry seeds a
// BFS wave that walks outward across RFISLConf links, assigning labels to
// every RFConfigEntry port it discovers and stamping fp_master on every
// link it reaches; once the walk ends, each link's fast_paths are pulled
// up onto its parent link.
//
// It returns an error if the label space is exhausted.
func Run(cfg *rfconfig.RFConfig, isl *rfconfig.RFISLConf, fp *rfconfig.RFFPConf) error {
	if !fp.Enabled() {
		return nil
	}

	a := NewAllocator()

	var roots []*node
	for _, e := range fp.All() {
		roots = append(roots, &node{dp: dpKey{e.CTID, e.DPID}, link: fpLink{e}})
	}

	visited := map[dpKey]bool{}
	var levels [][]*node
	frontier := roots

	for len(frontier) > 0 {
		var next []*node

		for _, n := range frontier {
			if visited[n.dp] {
				n.link.setFPMasterNone()
				continue
			}
			visited[n.dp] = true

			for _, port := range cfg.ForDP(n.dp.ct, n.dp.dp) {
				if _, ok := port.FPLabel(); ok {
					continue
				}
				label, err := a.allocate()
				if err != nil {
					return err
				}
				port.SetFPLabel(label)
				n.link.appendFastPath(label, port.VMPort)
			}

			if n.parent == nil {
				n.link.setFPMaster(n.dp.dp)
			} else {
				n.link.setFPMaster(n.parent.dp.dp)
			}

			for _, e := range isl.ForDP(n.dp.ct, n.dp.dp) {
				if n.arrivedVia == e {
					continue
				}
				e.FastPaths = nil
				child := &node{
					dp:         otherSide(e, n.dp),
					link:       islLink{e},
					parent:     n,
					arrivedVia: e,
				}
				next = append(next, child)
			}
		}

		levels = append(levels, frontier)
		frontier = next
	}

	for i := len(levels) - 1; i >= 1; i-- {
		for _, n := range levels[i] {
			if n.parent != nil {
				n.parent.link.appendFastPaths(n.link.fastPaths())
			}
		}
	}

	return nil
}
