// Package remote streams bridge events to an engine running on another
// machine. Engine hosts broadcast their gRPC port on UDP port 8032; the
// bridge connects to the first host it hears from.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// DefaultBroadcastPort is the UDP port hosts announce themselves on.
const DefaultBroadcastPort = 8032

// Host is an engine host heard on the broadcast port.
type Host struct {
	// Addr is the gRPC address, host:port.
	Addr string
	// Interface is the index of the interface the announcement arrived on,
	// zero when the platform doesn't report it.
	Interface int
}

// Listener receives host announcements.
type Listener struct {
	c   net.PacketConn
	p   *ipv4.PacketConn
	log log.FieldLogger
}

// Listen opens addr for announcements, e.g. ":8032".
func Listen(addr string) (*Listener, error) {
	c, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("can't listen for broadcasts: %w", err)
	}
	l := &Listener{c: c, p: ipv4.NewPacketConn(c), log: log.StandardLogger()}
	if err := l.p.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		// Not supported everywhere, announcements still work without it.
		l.log.WithError(err).Debug("no interface control messages")
	}
	return l, nil
}

// SetLogger replaces the logger.
func (l *Listener) SetLogger(lg log.FieldLogger) {
	l.log = lg
}

// Addr returns the local address.
func (l *Listener) Addr() net.Addr {
	return l.c.LocalAddr()
}

// Next blocks until a valid announcement arrives or ctx is done.
func (l *Listener) Next(ctx context.Context) (Host, error) {
	stop := context.AfterFunc(ctx, func() {
		l.p.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 512)
	for {
		n, cm, peer, err := l.p.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Host{}, ctx.Err()
			}
			return Host{}, fmt.Errorf("can't read broadcast: %w", err)
		}
		port := string(buf[:n])
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			l.log.WithFields(log.Fields{"peer": peer, "payload": port}).Debug("ignoring announcement")
			continue
		}
		host, _, err := net.SplitHostPort(peer.String())
		if err != nil {
			return Host{}, fmt.Errorf("can't parse peer IP address: %w", err)
		}
		h := Host{Addr: net.JoinHostPort(host, port)}
		if cm != nil {
			h.Interface = cm.IfIndex
		}
		l.log.WithFields(log.Fields{"peer": peer, "addr": h.Addr}).Info("received port broadcast")
		return h, nil
	}
}

// Close stops listening.
func (l *Listener) Close() error {
	return l.c.Close()
}

// Discover waits on addr for the first host announcement.
func Discover(ctx context.Context, addr string) (Host, error) {
	l, err := Listen(addr)
	if err != nil {
		return Host{}, err
	}
	defer l.Close()
	return l.Next(ctx)
}

// Announce writes port to dst every interval until ctx is done.
func Announce(ctx context.Context, c net.PacketConn, dst net.Addr, port string, interval time.Duration) error {
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("can't announce port %q: %w", port, err)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	log.WithFields(log.Fields{"port": port, "dst": dst}).Info("starting to broadcast our port")
	for {
		if _, err := c.WriteTo([]byte(port), dst); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
