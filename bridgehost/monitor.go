package main

import (
	"sort"
	"sync"
	"time"

	"github.com/viru/berrybridge/event"
)

// monitor keeps per-bridge event statistics. Stream handlers record from
// their own goroutines.
type monitor struct {
	mu    sync.Mutex
	peers map[string]*peerStats
	now   func() time.Time
}

type peerStats struct {
	counts   map[event.Kind]uint64
	total    uint64
	last     event.Event
	lastSeen time.Time
	pointers map[int32]bool
}

// peerRow is one line of the monitor snapshot.
type peerRow struct {
	Peer     string
	Total    uint64
	Touches  uint64
	Motion   uint64
	Keys     uint64
	Pointers int
	Last     event.Event
	LastSeen time.Time
}

func newMonitor() *monitor {
	return &monitor{peers: make(map[string]*peerStats), now: time.Now}
}

func (m *monitor) record(peer string, e event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[peer]
	if !ok {
		p = &peerStats{counts: make(map[event.Kind]uint64), pointers: make(map[int32]bool)}
		m.peers[peer] = p
	}
	p.counts[e.Kind]++
	p.total++
	p.last = e
	p.lastSeen = m.now()
	switch e.Kind {
	case event.TouchDown:
		p.pointers[e.PointerID] = true
	case event.TouchUp:
		delete(p.pointers, e.PointerID)
	}
}

// snapshot returns one row per bridge, ordered by address.
func (m *monitor) snapshot() []peerRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]peerRow, 0, len(m.peers))
	for addr, p := range m.peers {
		rows = append(rows, peerRow{
			Peer:     addr,
			Total:    p.total,
			Touches:  p.counts[event.TouchDown] + p.counts[event.TouchMove] + p.counts[event.TouchUp],
			Motion:   p.counts[event.Accelerometer] + p.counts[event.Compass],
			Keys:     p.counts[event.KeyPress] + p.counts[event.KeyRelease],
			Pointers: len(p.pointers),
			Last:     p.last,
			LastSeen: p.lastSeen,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Peer < rows[j].Peer })
	return rows
}
