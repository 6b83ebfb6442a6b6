package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"github.com/golang/protobuf/ptypes/wrappers"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/viru/berrybridge/event"
)

const (
	// DefaultBacklog is the number of events buffered before Push drops.
	DefaultBacklog = 256
	// DefaultCloseTimeout bounds how long Close waits for the flush and the
	// host's acknowledgement.
	DefaultCloseTimeout = time.Second
	maxBatch            = 64
)

// ErrClosed is returned by Close on a client that was already closed.
var ErrClosed = errors.New("remote: client closed")

// Client streams events to an engine host. It implements event.Sink, so it
// can sit behind the touch dispatcher or the motion listener directly.
type Client struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
	cancel context.CancelFunc
	log    log.FieldLogger

	closeTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	events  chan event.Event
	done    chan struct{}
	failed  atomic.Bool
	err     error
	sent    atomic.Uint64
	dropped atomic.Uint64
}

var _ event.Sink = (*Client)(nil)

// Dial connects to the host at target and opens the event stream. Extra
// options are appended after insecure transport credentials.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("can't connect to %s: %w", target, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := conn.NewStream(ctx, &eventsStream, eventsMethod)
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("can't open event stream: %w", err)
	}
	c := &Client{
		conn:   conn,
		stream: stream,
		cancel: cancel,
		log:    log.WithField("host", target),
		events: make(chan event.Event, DefaultBacklog),
		done:   make(chan struct{}),

		closeTimeout: DefaultCloseTimeout,
	}
	go c.pump()
	c.log.Info("connected")
	return c, nil
}

// Push queues e for sending. It never blocks and returns false when the
// backlog is full or the stream is gone.
func (c *Client) Push(e event.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.failed.Load() {
		c.dropped.Add(1)
		return false
	}
	select {
	case c.events <- e:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// SetCloseTimeout replaces DefaultCloseTimeout. Zero waits for the host
// forever. Call it before Close.
func (c *Client) SetCloseTimeout(d time.Duration) {
	c.closeTimeout = d
}

// Sent returns the number of events handed to the stream.
func (c *Client) Sent() uint64 {
	return c.sent.Load()
}

// Dropped returns the number of events rejected by Push.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// pump batches whatever is queued into one message per send.
func (c *Client) pump() {
	defer close(c.done)
	buf := make([]byte, 0, maxBatch*event.WireSize)
	for e := range c.events {
		buf = appendEvent(buf[:0], e)
		n := 1
	batch:
		for n < maxBatch {
			select {
			case e, ok := <-c.events:
				if !ok {
					break batch
				}
				buf = appendEvent(buf, e)
				n++
			default:
				break batch
			}
		}
		if err := c.stream.SendMsg(&wrappers.BytesValue{Value: buf}); err != nil {
			c.err = err
			c.failed.Store(true)
			c.log.Warnf("can't send events: %v", err)
			return
		}
		c.sent.Add(uint64(n))
	}
}

func appendEvent(b []byte, e event.Event) []byte {
	w, _ := e.MarshalBinary()
	return append(b, w...)
}

// Close flushes queued events, waits for the host to acknowledge the stream
// and closes the connection. A host that doesn't answer within the close
// timeout gets its stream cancelled.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	close(c.events)
	c.mu.Unlock()

	if c.closeTimeout > 0 {
		t := time.AfterFunc(c.closeTimeout, func() {
			c.log.Warn("host didn't acknowledge in time, dropping stream")
			c.cancel()
		})
		defer t.Stop()
	}
	<-c.done
	defer c.conn.Close()
	defer c.cancel()
	if c.err != nil {
		return fmt.Errorf("can't send events: %w", c.err)
	}
	if err := c.stream.CloseSend(); err != nil {
		return fmt.Errorf("can't close event stream: %w", err)
	}
	if err := c.stream.RecvMsg(&empty.Empty{}); err != nil {
		return fmt.Errorf("event stream not acknowledged: %w", err)
	}
	c.log.WithFields(log.Fields{
		"sent":    c.sent.Load(),
		"dropped": c.dropped.Load(),
	}).Info("disconnected")
	return nil
}
