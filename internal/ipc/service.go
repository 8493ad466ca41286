package ipc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/routeflow/rfcoord/internal/wire"
)

// retryAttempts and retryInterval are the mailbox-drain retry policy: up
// to 30 attempts, 500ms apart, before a frame to an unreachable peer is
// dropped and logged.
const (
	retryAttempts = 30
	retryInterval = 500 * time.Millisecond
)

// mailboxBuffer and subscriberBuffer size the Go channels standing in for
// the mailbox and publisher sockets.
const (
	mailboxBuffer    = 64
	subscriberBuffer = 64
)

// sendJob is one outbound frame queued on a Service's own mailbox,
// awaiting the sender goroutine's retry-backed delivery attempt.
type sendJob struct {
	recipient string
	frame     wire.Frame
	msgType   byte
}

// Service is one named participant of the fabric: a client, the proxy, or
// the coordinator itself. Send only ever enqueues onto this service's own
// mailbox; a dedicated sender goroutine drains it and carries the retry
// burden, so a caller addressing a slow or unreachable peer is never
// itself blocked for the retry budget.
type Service struct {
	id  string
	bus *Bus
	log *zap.SugaredLogger

	mailbox chan sendJob

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService joins id to bus, starts its mailbox-drain goroutine, and
// returns the Service handle used to send and subscribe.
func NewService(id string, bus *Bus, log *zap.SugaredLogger) *Service {
	bus.join(id, mailboxBuffer)

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	s := &Service{
		id:      id,
		bus:     bus,
		log:     log,
		mailbox: make(chan sendJob, mailboxBuffer),
		group:   group,
		ctx:     ctx,
		cancel:  cancel,
	}
	group.Go(s.drainMailbox)
	return s
}

// Close stops this service's mailbox-drain goroutine, waiting for it to
// exit. Frames still queued at the time of Close are dropped.
func (s *Service) Close() error {
	s.cancel()
	return s.group.Wait()
}

// Subscribe joins channel and returns the frames delivered to it, fed by
// a dedicated fan-out goroutine owned by the bus.
func (s *Service) Subscribe(channel string) <-chan wire.Frame {
	return s.bus.subscribe(channel, subscriberBuffer)
}

// Inbox returns the frames addressed directly to this service's id,
// across every channel it participates in as a recipient.
func (s *Service) Inbox() <-chan wire.Frame {
	s.bus.mu.RLock()
	ch := s.bus.peers[s.id]
	s.bus.mu.RUnlock()
	return ch
}

// Send queues msg for delivery to recipient on channel, addressed by the
// decimal string form of recipient's integer id, and returns as soon as
// it is queued. The mailbox-drain goroutine retries the actual delivery
// up to 30 times, 500ms apart, while the peer is unreachable (unjoined or
// backed up); after the final failure the frame is dropped and logged,
// per the "IPC unreachable peer" error-handling rule — processing
// continues either way. Send blocks only if this service's own mailbox is
// currently full, or ctx is canceled first.
func (s *Service) Send(ctx context.Context, recipient string, channel string, msg wire.Message) {
	job := sendJob{
		recipient: recipient,
		frame:     wire.NewFrame(recipient, channel, msg),
		msgType:   msg.Type(),
	}
	select {
	case s.mailbox <- job:
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
}

// drainMailbox is the dedicated sender goroutine: the only reader of
// s.mailbox, so deliveries for one recipient never race with another.
func (s *Service) drainMailbox() error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case job := <-s.mailbox:
			s.deliver(job)
		}
	}
}

func (s *Service) deliver(job sendJob) {
	op := func() (struct{}, error) {
		return struct{}{}, s.bus.trySend(job.recipient, job.frame)
	}
	_, err := backoff.Retry(s.ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(retryInterval)),
		backoff.WithMaxTries(retryAttempts),
	)
	if err != nil {
		s.log.Warnw("dropping undeliverable ipc frame",
			"recipient", job.recipient, "channel", job.frame.Channel, "type", job.msgType, "error", err)
	}
}

// Publish fans msg out, on the sender's own behalf, to every current
// subscriber of channel; the frame's Recipient field carries the sender's
// own id. The coordinator uses this to mirror its outbound traffic onto
// its telemetry channel.
func (s *Service) Publish(channel string, msg wire.Message) {
	s.bus.publish(wire.NewFrame(s.id, channel, msg))
}
