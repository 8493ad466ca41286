package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/routeflow/rfcoord/internal/wire"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	log := zap.NewNop().Sugar()

	proxy := NewService("proxy", bus, log)
	subA := NewService("a", bus, log).Subscribe("proxy-events")
	subB := NewService("b", bus, log).Subscribe("proxy-events")

	proxy.Publish("proxy-events", wire.DatapathDown{CTID: 0, DPID: 0xff})

	for _, ch := range []<-chan wire.Frame{subA, subB} {
		select {
		case f := <-ch:
			require.Equal(t, "proxy-events", f.Channel)
			msg, err := f.Decode()
			require.NoError(t, err)
			require.Equal(t, wire.DatapathDown{CTID: 0, DPID: 0xff}, msg)
		case <-time.After(time.Second):
			t.Fatal("subscriber never received publication")
		}
	}
}

func TestSendToUnjoinedPeerReturnsImmediately(t *testing.T) {
	bus := NewBus()
	log := zap.NewNop().Sugar()
	sender := NewService("10", bus, log)

	// No peer named "999" ever joins. Send only enqueues onto this
	// service's own mailbox, so it must return right away; the 30x500ms
	// retry budget is carried entirely by the background drain goroutine.
	done := make(chan struct{})
	go func() {
		sender.Send(context.Background(), "999", "client", wire.PortRegister{VMID: 1, VMPort: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Send blocked on an unreachable peer instead of only enqueueing")
	}
}

func TestInboxReceivesDirectSend(t *testing.T) {
	bus := NewBus()
	log := zap.NewNop().Sugar()

	sender := NewService("1", bus, log)
	recipient := NewService("2", bus, log)

	sender.Send(context.Background(), "2", "client", wire.PortRegister{VMID: 7, VMPort: 3})

	select {
	case f := <-recipient.Inbox():
		msg, err := f.Decode()
		require.NoError(t, err)
		pr, ok := msg.(wire.PortRegister)
		require.True(t, ok)
		require.Equal(t, uint64(7), pr.VMID)
	case <-time.After(time.Second):
		t.Fatal("recipient never received direct send")
	}
}
