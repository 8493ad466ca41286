// Package routemod implements the RouteMod translator (C7): one instance
// per datapath, rewriting an abstract RouteMod into a vendor-correct
// ordered sequence of stage-aware flow rules.
package routemod

import (
	"sync"

	"github.com/routeflow/rfcoord/internal/assoc"
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/rfconfig"
	"github.com/routeflow/rfcoord/internal/wire"
)

// Translator is implemented by every vendor pipeline. The four operations
// mirror the duck-typed hierarchy of the source: a default pipeline, a
// satellite pipeline that overrides only HandleISLRouteMod, and the
// multi-table vendor pipelines that override everything.
type Translator interface {
	// ConfigureDatapath returns the one-shot initial table setup, emitted
	// when the first port of the datapath registers.
	ConfigureDatapath() []*wire.RouteMod
	// HandleControllerRouteMod translates a client request to punt
	// matching traffic to the routing stack.
	HandleControllerRouteMod(entry *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod
	// HandleRouteMod translates an ADD/DELETE forwarding rule bound to a
	// local association.
	HandleRouteMod(entry *assoc.Entry, rm *wire.RouteMod) []*wire.RouteMod
	// HandleISLRouteMod translates an ADD/DELETE forwarding rule reaching
	// a remote datapath across an active ISL.
	HandleISLRouteMod(link *isl.Entry, rm *wire.RouteMod) []*wire.RouteMod
}

// Context is the shared state every translator needs: which datapath it
// owns, the live tables it fans out across, and the static configuration
// that carries the fastpath annotation.
type Context struct {
	CTID uint64
	DPID uint64

	Assoc  assoc.Table
	ISL    isl.Table
	Config *rfconfig.RFConfig
	FPConf *rfconfig.RFFPConf
}

// fastpathEnabled reports whether this datapath has a declared fastpath
// link to the controller.
func (c Context) fastpathEnabled() (*rfconfig.RFFPConfEntry, bool) {
	if c.FPConf == nil || !c.FPConf.Enabled() {
		return nil, false
	}
	return c.FPConf.ForDP(c.CTID, c.DPID)
}

// port is one other live endpoint on this datapath, the target of the
// in-port fan-out described in the spec's C7 policy.
type port struct {
	dpPort uint32
	eth    []byte
}

// Constructor builds a Translator bound to ctx.
type Constructor func(ctx Context) Translator

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register adds a named vendor constructor to the process-wide registry.
// Every vendor is registered once, from this package's init; New looks a
// name up each time a datapath's translator is first built.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// New builds the named vendor's translator bound to ctx. ok is false for
// an unregistered name; the coordinator falls back to "default" per the
// vendor-parse-error recovery rule.
func New(name string, ctx Context) (Translator, bool) {
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(ctx), true
}

func init() {
	Register("default", func(ctx Context) Translator { return NewDefault(ctx) })
	Register("satellite", func(ctx Context) Translator { return NewSatellite(ctx) })
	Register("noviflow", func(ctx Context) Translator { return NewNoviFlow(ctx) })
	Register("corsa", func(ctx Context) Translator { return NewCorsaV1(ctx) })
	Register("corsa-v1", func(ctx Context) Translator { return NewCorsaV1(ctx) })
	Register("corsa-v3", func(ctx Context) Translator { return NewCorsaV3(ctx) })
}
