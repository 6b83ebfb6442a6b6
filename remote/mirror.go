package remote

import "github.com/viru/berrybridge/event"

// Mirror is an event.Sink pushing to a local sink and, once a client is
// attached, to the remote engine as well. Only the local sink decides
// whether an event was accepted; remote drops are counted by the client.
//
// Mirror is not safe for concurrent use, it belongs to the producer
// goroutine.
type Mirror struct {
	local  event.Sink
	client *Client
}

var _ event.Sink = (*Mirror)(nil)

// NewMirror returns a mirror of local without a remote side.
func NewMirror(local event.Sink) *Mirror {
	return &Mirror{local: local}
}

// Push implements event.Sink.
func (m *Mirror) Push(e event.Event) bool {
	if m.client != nil {
		m.client.Push(e)
	}
	return m.local.Push(e)
}

// Attach starts mirroring to c. The previous client, if any, is closed in
// the background so the producer never waits on a host.
func (m *Mirror) Attach(c *Client) {
	if old := m.client; old != nil {
		go func() {
			if err := old.Close(); err != nil {
				old.log.Warnf("can't close previous stream: %v", err)
			}
		}()
	}
	m.client = c
}

// Attached reports whether a remote side is attached.
func (m *Mirror) Attached() bool {
	return m.client != nil
}

// Close detaches and closes the remote side. It waits at most the client's
// close timeout.
func (m *Mirror) Close() error {
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}
