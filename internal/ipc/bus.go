// Package ipc implements the IPC fabric (C3): many-to-many named-channel
// pub/sub with per-peer addressable send. A process joins with a string
// id, subscribes to zero or more named channels, and sends point-to-point
// frames to a specific peer id on a named channel.
//
// The source backend is ZeroMQ-based (a router socket for addressable
// send, a publisher socket for channel fanout, and a mailbox socket
// draining into the router under retry). None of the example dependency
// set carries a ZeroMQ binding, so this package reproduces the same
// three-part contract over Go channels and goroutines supervised by
// golang.org/x/sync/errgroup: a router-read loop owns the peer table and
// is the only goroutine that ever writes into a peer's inbox, each
// Service drains its own mailbox through a dedicated sender goroutine so
// a slow or unreachable recipient never blocks the caller, and every
// channel subscriber is fed by its own fan-out goroutine reading off a
// buffered intake queue so one backed-up subscriber can't stall another.
package ipc

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/routeflow/rfcoord/internal/wire"
)

// routerBuffer sizes the intake queue the router-read loop drains.
const routerBuffer = 256

// routedFrame is one pending delivery request handed to the router loop;
// result carries the outcome back to the caller (trySend), mirroring a
// synchronous router-socket call without actually blocking the router
// loop on a slow caller.
type routedFrame struct {
	recipient string
	frame     wire.Frame
	result    chan error
}

// Bus is the shared fabric every Service joins. It plays the role of the
// router socket (addressable send to a joined peer id) and the publisher
// socket (fanout to every subscriber of a channel) combined.
type Bus struct {
	mu    sync.RWMutex
	peers map[string]chan wire.Frame
	subs  map[string][]chan wire.Frame

	router chan routedFrame

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBus creates an empty fabric and starts its router-read loop.
func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	b := &Bus{
		peers:  map[string]chan wire.Frame{},
		subs:   map[string][]chan wire.Frame{},
		router: make(chan routedFrame, routerBuffer),
		group:  group,
		ctx:    ctx,
		cancel: cancel,
	}
	group.Go(b.routeLoop)
	return b
}

// Close stops the router-read loop and every subscriber fan-out goroutine
// started against this bus, waiting for them to exit.
func (b *Bus) Close() error {
	b.cancel()
	return b.group.Wait()
}

// routeLoop is the bus's single router-read goroutine: the only place
// that ever writes into a joined peer's inbox, so peer delivery needs no
// lock of its own beyond the peer-table lookup.
func (b *Bus) routeLoop() error {
	for {
		select {
		case <-b.ctx.Done():
			return nil
		case rf := <-b.router:
			b.mu.RLock()
			ch, ok := b.peers[rf.recipient]
			b.mu.RUnlock()
			if !ok {
				rf.result <- fmt.Errorf("ipc: peer %q has not joined", rf.recipient)
				continue
			}
			select {
			case ch <- rf.frame:
				rf.result <- nil
			default:
				rf.result <- fmt.Errorf("ipc: peer %q mailbox full", rf.recipient)
			}
		}
	}
}

// join registers id as a deliverable peer, returning the inbound queue
// frames addressed to it arrive on. Re-joining the same id replaces its
// queue.
func (b *Bus) join(id string, buffer int) chan wire.Frame {
	ch := make(chan wire.Frame, buffer)
	b.mu.Lock()
	b.peers[id] = ch
	b.mu.Unlock()
	return ch
}

// subscribe registers a new subscriber on channel and starts the
// dedicated fan-out goroutine that feeds it: publish() only ever writes
// into the subscriber's intake queue, never into the channel returned
// here, so a subscriber that stops reading can't make publish() block.
func (b *Bus) subscribe(channel string, buffer int) <-chan wire.Frame {
	intake := make(chan wire.Frame, buffer)
	out := make(chan wire.Frame, buffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], intake)
	b.mu.Unlock()

	b.group.Go(func() error {
		for {
			select {
			case <-b.ctx.Done():
				return nil
			case f := <-intake:
				select {
				case out <- f:
				case <-b.ctx.Done():
					return nil
				}
			}
		}
	})

	return out
}

// publish fans f out to every current subscriber's intake queue. A
// subscriber whose intake is currently full is skipped for this
// publication rather than allowed to block every other subscriber.
func (b *Bus) publish(f wire.Frame) {
	b.mu.RLock()
	intakes := append([]chan wire.Frame{}, b.subs[f.Channel]...)
	b.mu.RUnlock()

	for _, intake := range intakes {
		select {
		case intake <- f:
		default:
		}
	}
}

// trySend hands recipient's delivery to the router loop and waits for its
// outcome: peer unjoined or its mailbox momentarily full, both retried by
// the caller's mailbox-drain goroutine in Service.
func (b *Bus) trySend(recipient string, f wire.Frame) error {
	result := make(chan error, 1)
	select {
	case b.router <- routedFrame{recipient: recipient, frame: f, result: result}:
	case <-b.ctx.Done():
		return b.ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-b.ctx.Done():
		return b.ctx.Err()
	}
}
