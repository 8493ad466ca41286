// Package coordsvc implements the coordinator loop (C8): the single
// dispatch thread that owns the entity tables and the translator cache,
// plus the concurrency primitives around it (the ack queue, the
// datapath-bound RouteMod queue, and the IPC service they drain into).
package coordsvc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/routeflow/rfcoord/internal/assoc"
	"github.com/routeflow/rfcoord/internal/fastpath"
	"github.com/routeflow/rfcoord/internal/ipc"
	"github.com/routeflow/rfcoord/internal/isl"
	"github.com/routeflow/rfcoord/internal/rfconfig"
	"github.com/routeflow/rfcoord/internal/routemod"
	"github.com/routeflow/rfcoord/internal/store"
	"github.com/routeflow/rfcoord/internal/values"
	"github.com/routeflow/rfcoord/internal/wire"
)

// Channel names used on the fabric. Both the client population and the
// proxy address the coordinator's own id; the coordinator tells them
// apart by the channel the frame carries.
const (
	ChannelClient = "client"
	ChannelProxy  = "proxy"
)

// ChannelTelemetry is the fan-out channel every outbound message is
// mirrored onto, alongside its point-to-point delivery, so any number of
// observers can subscribe for read-only visibility into the coordinator's
// traffic without being addressed as a peer themselves.
const ChannelTelemetry = "telemetry"

// queueDepth sizes the ack and datapath queues. Depth is generous since
// backpressure is meant to show up as queue growth, not as a blocked
// dispatch thread.
const queueDepth = 4096

// dpKey identifies one physical datapath a translator is bound to.
type dpKey struct{ ct, dp uint64 }

type translatorEntry struct {
	ctID uint64
	t    routemod.Translator
}

type dpJob struct {
	ctID uint64
	msg  wire.Message
}

type ackJob struct {
	vmID   uint64
	vmPort uint32
}

// Config is the static wiring loaded once at startup.
type Config struct {
	RFConfig *rfconfig.RFConfig
	ISLConf  *rfconfig.RFISLConf
	FPConf   *rfconfig.RFFPConf

	// MultiTableDPs maps a dp_id to a multi-table vendor name ("noviflow",
	// "corsa", "corsa-v1", "corsa-v3"), from the CLI's -m flag.
	MultiTableDPs map[uint64]string
	// SatelliteDPs marks dp_ids that should use the satellite pipeline,
	// from the CLI's -s flag.
	SatelliteDPs map[uint64]bool
	// Daemon is the optional YAML daemon config (-c flag); its
	// vendor_overrides glob patterns are checked between MultiTableDPs
	// and SatelliteDPs. Nil means no overrides.
	Daemon *rfconfig.DaemonConfig
	// IsVirtualSwitch reports whether a given (ct_id, dp_id) names the
	// virtual switch rather than a physical datapath; such registrations
	// are ignored entirely. The CLI surface names no flag for this, so
	// callers that need it supply their own predicate; nil means "never".
	IsVirtualSwitch func(ctID, dpID uint64) bool
}

// Coordinator is the C8 dispatch loop and its owned state.
type Coordinator struct {
	cfg Config
	log *zap.SugaredLogger

	assocTable assoc.Table
	islTable   isl.Table

	assocMachine *assoc.Machine
	islMachine   *isl.Machine

	translators map[dpKey]translatorEntry

	svc     *ipc.Service
	dpQueue chan dpJob
	ackQueue chan ackJob
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithLog overrides the default no-op logger.
func WithLog(log *zap.SugaredLogger) Option {
	return func(c *Coordinator) { c.log = log }
}

// New builds a Coordinator bound to bus under id, running the fastpath
// allocator once up front if fastpath mode is enabled.
func New(id string, bus *ipc.Bus, cfg Config, opts ...Option) (*Coordinator, error) {
	if cfg.FPConf != nil && cfg.FPConf.Enabled() {
		if err := fastpath.Run(cfg.RFConfig, cfg.ISLConf, cfg.FPConf); err != nil {
			return nil, fmt.Errorf("failed to allocate fastpath labels: %w", err)
		}
	}

	c := &Coordinator{
		cfg:          cfg,
		log:          zap.NewNop().Sugar(),
		assocTable:   assoc.NewMemoryTable(),
		islTable:     isl.NewMemoryTable(),
		translators:  map[dpKey]translatorEntry{},
		dpQueue:      make(chan dpJob, queueDepth),
		ackQueue:     make(chan ackJob, queueDepth),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.assocMachine = assoc.NewMachine(c.assocTable, cfg.RFConfig)
	c.islMachine = isl.NewMachine(c.islTable, cfg.ISLConf)
	c.svc = ipc.NewService(id, bus, c.log)

	c.log.Infow("initializing RouteFlow coordinator",
		"associations", len(cfg.RFConfig.All()),
		"isl_links", len(cfg.ISLConf.All()),
		"multitable_dps", len(cfg.MultiTableDPs),
		"satellite_dps", len(cfg.SatelliteDPs),
	)
	for dpID := range cfg.MultiTableDPs {
		if len(cfg.RFConfig.ForDP(0, dpID)) == 0 {
			c.log.Warnw("multitable dp_id has no configured ports", "dp_id", dpID)
		}
	}
	for dpID := range cfg.SatelliteDPs {
		if len(cfg.RFConfig.ForDP(0, dpID)) == 0 {
			c.log.Warnw("satellite dp_id has no configured ports", "dp_id", dpID)
		}
	}

	return c, nil
}

// Service exposes the coordinator's IPC handle, so clients and the proxy
// in the same process can address it.
func (c *Coordinator) Service() *ipc.Service { return c.svc }

// sendAndMirror delivers msg point-to-point to recipient, and also
// publishes it on ChannelTelemetry so any subscriber gets a read-only
// copy of the coordinator's outbound traffic.
func (c *Coordinator) sendAndMirror(ctx context.Context, recipient, channel string, msg wire.Message) {
	c.svc.Send(ctx, recipient, channel, msg)
	c.svc.Publish(ChannelTelemetry, msg)
}

// Run drives the dispatch loop and the datapath worker until ctx is
// canceled.
func (c *Coordinator) Run(ctx context.Context) error {
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error { return c.runDispatch(ctx) })
	wg.Go(func() error { return c.runDatapathWorker(ctx) })
	return wg.Wait()
}

func (c *Coordinator) runDispatch(ctx context.Context) error {
	inbox := c.svc.Inbox()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-inbox:
			if !ok {
				return nil
			}
			c.dispatch(ctx, f)
		}
	}
}

func (c *Coordinator) runDatapathWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-c.dpQueue:
			c.sendAndMirror(ctx, wire.IDString(job.ctID), ChannelProxy, job.msg)
		}
	}
}

func (c *Coordinator) dispatch(ctx context.Context, f wire.Frame) {
	msg, err := f.Decode()
	if err != nil {
		c.log.Warnw("dropping undecodable ipc frame", "channel", f.Channel, "error", err)
		return
	}
	switch f.Channel {
	case ChannelClient:
		c.dispatchClient(ctx, msg)
	case ChannelProxy:
		c.dispatchProxy(ctx, msg)
	default:
		c.log.Warnw("dropping frame on unrecognized channel", "channel", f.Channel)
	}
}

func (c *Coordinator) dispatchClient(ctx context.Context, msg wire.Message) {
	switch m := msg.(type) {
	case wire.PortRegister:
		c.assocMachine.RegisterVMPort(m.VMID, m.VMPort, m.HWAddress)
	case wire.RouteMod:
		c.handleClientRouteMod(ctx, &m)
	default:
		c.log.Warnw("dropping unexpected message on client channel", "type", msg.Type())
	}
}

func (c *Coordinator) dispatchProxy(ctx context.Context, msg wire.Message) {
	switch m := msg.(type) {
	case wire.DatapathPortRegister:
		c.handleDatapathPortRegister(m)
	case wire.DatapathDown:
		c.handleDatapathDown(ctx, m)
	case wire.VirtualPlaneMap:
		c.handleVirtualPlaneMap(ctx, m)
	case wire.RouteMod:
		c.drainAcks(ctx)
	default:
		c.log.Warnw("dropping unexpected message on proxy channel", "type", msg.Type())
	}
}

// translatorFor returns the cached translator for (ctID, dpID), building
// one on first use. Vendor selection: multitabledps' explicit map, then
// the daemon config's vendor_overrides glob patterns, then satellitedps
// membership, then default; an unregistered vendor name falls back to
// default.
func (c *Coordinator) translatorFor(ctID, dpID uint64) routemod.Translator {
	key := dpKey{ctID, dpID}
	if te, ok := c.translators[key]; ok {
		return te.t
	}

	name := "default"
	if v, ok := c.cfg.MultiTableDPs[dpID]; ok {
		name = v
	} else if v, ok := c.cfg.Daemon.VendorFor(dpID); ok {
		name = v
	} else if c.cfg.SatelliteDPs[dpID] {
		name = "satellite"
	}

	ctx := routemod.Context{
		CTID: ctID, DPID: dpID,
		Assoc: c.assocTable, ISL: c.islTable,
		Config: c.cfg.RFConfig, FPConf: c.cfg.FPConf,
	}
	t, ok := routemod.New(name, ctx)
	if !ok {
		c.log.Warnw("unknown routemod vendor, falling back to default", "dp_id", dpID, "vendor", name)
		t, _ = routemod.New("default", ctx)
	}

	c.translators[key] = translatorEntry{ctID: ctID, t: t}
	return t
}

func filterDP(ctID, dpID uint64) []store.Filter {
	return []store.Filter{store.F("CTID", ctID), store.F("DPID", dpID)}
}

func filterVMID(vmID uint64) []store.Filter {
	return []store.Filter{store.F("VMID", vmID)}
}

func (c *Coordinator) findAssocByVMPort(vmID uint64, vmPort uint32) *assoc.Entry {
	res := c.assocTable.Get(store.F("VMID", vmID), store.F("VMPort", vmPort))
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

func (c *Coordinator) isVirtualSwitch(ctID, dpID uint64) bool {
	return c.cfg.IsVirtualSwitch != nil && c.cfg.IsVirtualSwitch(ctID, dpID)
}

// isFirstPort reports whether (ctID, dpID) has no entry yet in either
// table, i.e. this registration is the first sign of life from that
// datapath.
func (c *Coordinator) isFirstPort(ctID, dpID uint64) bool {
	if len(c.assocTable.Get(filterDP(ctID, dpID)...)) > 0 {
		return false
	}
	if len(c.islTable.Get(filterDP(ctID, dpID)...)) > 0 {
		return false
	}
	return true
}

func (c *Coordinator) handleDatapathPortRegister(m wire.DatapathPortRegister) {
	if c.isVirtualSwitch(m.CTID, m.DPID) {
		return
	}

	if c.isFirstPort(m.CTID, m.DPID) {
		t := c.translatorFor(m.CTID, m.DPID)
		for _, rm := range t.ConfigureDatapath() {
			c.enqueueRouteMod(m.CTID, rm)
		}
	}

	if _, ok := c.cfg.RFConfig.ByDPPort(m.CTID, m.DPID, m.DPPort); !ok {
		if touched := c.islMachine.RegisterPort(m.CTID, m.DPID, m.DPPort); len(touched) == 0 {
			c.assocTable.Put(assoc.NewIdleDPPort(m.CTID, m.DPID, m.DPPort))
		}
		return
	}

	c.assocMachine.RegisterDPPort(m.CTID, m.DPID, m.DPPort)
}

func (c *Coordinator) handleDatapathDown(ctx context.Context, m wire.DatapathDown) {
	for _, e := range c.assocMachine.DatapathDown(m.CTID, m.DPID) {
		c.sendAndMirror(ctx, wire.IDString(e.VMID), ChannelClient, wire.PortConfig{
			VMID: e.VMID, VMPort: e.VMPort, OperationID: wire.PortConfigReset,
		})
	}
	c.islMachine.DatapathDown(m.CTID, m.DPID)
	delete(c.translators, dpKey{m.CTID, m.DPID})
}

func (c *Coordinator) handleVirtualPlaneMap(ctx context.Context, m wire.VirtualPlaneMap) {
	entry, ok := c.assocMachine.VirtualPlaneMap(m.VMID, m.VMPort, m.VSID, m.VSPort)
	if !ok {
		return
	}
	c.sendAndMirror(ctx, wire.IDString(entry.CTID), ChannelProxy, wire.DataPlaneMap{
		CTID: entry.CTID, DPID: entry.DPID, DPPort: entry.DPPort,
		VSID: entry.VSID, VSPort: entry.VSPort,
	})
	c.sendAndMirror(ctx, wire.IDString(entry.VMID), ChannelClient, wire.PortConfig{
		VMID: entry.VMID, VMPort: entry.VMPort, OperationID: wire.PortConfigMapSuccess,
	})
}

// handleClientRouteMod translates an inbound client RouteMod against the
// association it names (rm.Dest is a vm_id, rm.VMPort its port), then
// additionally fans it across every active ISL sharing the same routing
// instance, since a routing instance's rules apply wherever it has a live
// half.
func (c *Coordinator) handleClientRouteMod(ctx context.Context, rm *wire.RouteMod) {
	entry := c.findAssocByVMPort(rm.Dest, rm.VMPort)
	if entry == nil || !entry.HasDatapathSide() {
		c.log.Warnw("dropping route_mod for unknown association", "vm_id", rm.Dest, "vm_port", rm.VMPort)
		return
	}

	t := c.translatorFor(entry.CTID, entry.DPID)

	type outRM struct {
		ctID uint64
		rm   *wire.RouteMod
	}
	var out []outRM

	switch rm.Op {
	case wire.RouteModController:
		for _, r := range t.HandleControllerRouteMod(entry, rm) {
			out = append(out, outRM{entry.CTID, r})
		}
	case wire.RouteModAdd, wire.RouteModDelete:
		for _, r := range t.HandleRouteMod(entry, rm) {
			out = append(out, outRM{entry.CTID, r})
		}
		for _, link := range c.islTable.Get(filterVMID(entry.VMID)...) {
			if link.Status() != isl.StatusActive {
				continue
			}
			far := c.translatorFor(link.RemCT, link.RemID)
			for _, r := range far.HandleISLRouteMod(link, rm) {
				out = append(out, outRM{link.RemCT, r})
			}
		}
	default:
		c.log.Warnw("dropping route_mod with unknown operation", "op", rm.Op)
		return
	}

	for _, r := range out {
		c.enqueueRouteMod(r.ctID, r.rm)
	}
	c.ackQueue <- ackJob{vmID: entry.VMID, vmPort: entry.VMPort}
}

// enqueueRouteMod stamps the CT_ID option a RouteMod must carry (unless
// a translator already set one) and hands it to the datapath worker.
func (c *Coordinator) enqueueRouteMod(ctID uint64, rm *wire.RouteMod) {
	if !values.HasCTID(rm.Options) {
		rm.Options = append(rm.Options, values.CTID(uint32(ctID)))
	}
	c.dpQueue <- dpJob{ctID: ctID, msg: *rm}
}

// drainAcks sends every currently queued RouteMod ack, paced by the
// proxy's own ROUTE_MOD traffic signaling readiness for more.
func (c *Coordinator) drainAcks(ctx context.Context) {
	for {
		select {
		case job := <-c.ackQueue:
			c.sendAndMirror(ctx, wire.IDString(job.vmID), ChannelClient, wire.PortConfig{
				VMID: job.vmID, VMPort: job.vmPort, OperationID: wire.PortConfigRouteModAck,
			})
		default:
			return
		}
	}
}
