package remote

import (
	"io"
	"sync/atomic"

	"github.com/golang/protobuf/ptypes/empty"
	"github.com/golang/protobuf/ptypes/wrappers"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/viru/berrybridge/event"
)

const (
	serviceName  = "berrybridge.Engine"
	eventsMethod = "/" + serviceName + "/Events"
)

// EventsServer is the server side of the Events stream. Each client message
// is a BytesValue holding one or more wire encoded events; the server
// answers with Empty once the client closes its side.
type EventsServer interface {
	Events(stream grpc.ServerStream) error
}

var eventsStream = grpc.StreamDesc{
	StreamName:    "Events",
	ClientStreams: true,
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EventsServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    eventsStream.StreamName,
		ClientStreams: eventsStream.ClientStreams,
		Handler: func(srv any, stream grpc.ServerStream) error {
			return srv.(EventsServer).Events(stream)
		},
	}},
	Metadata: "berrybridge/engine.proto",
}

// Handler is called for every event received, with the client address.
type Handler func(peer string, e event.Event)

// Server receives event streams from bridges.
type Server struct {
	handle   Handler
	log      log.FieldLogger
	streams  atomic.Int32
	received atomic.Uint64
}

// NewServer returns a server passing events to h.
func NewServer(h Handler) *Server {
	return &Server{handle: h, log: log.StandardLogger()}
}

// SetLogger replaces the logger.
func (s *Server) SetLogger(l log.FieldLogger) {
	s.log = l
}

// Register adds the Events service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&serviceDesc, s)
}

// Streams returns the number of connected bridges.
func (s *Server) Streams() int {
	return int(s.streams.Load())
}

// Received returns the number of events received on all streams.
func (s *Server) Received() uint64 {
	return s.received.Load()
}

// Events implements EventsServer.
func (s *Server) Events(stream grpc.ServerStream) error {
	from := "unknown"
	if p, ok := peer.FromContext(stream.Context()); ok {
		from = p.Addr.String()
	}
	lg := s.log.WithField("peer", from)
	s.streams.Add(1)
	defer s.streams.Add(-1)
	lg.Info("bridge connected")

	var n uint64
	for {
		var m wrappers.BytesValue
		err := stream.RecvMsg(&m)
		if err == io.EOF {
			lg.WithField("events", n).Info("bridge disconnected")
			return stream.SendMsg(&empty.Empty{})
		}
		if err != nil {
			lg.Warnf("ERR from client: %v", err)
			return err
		}
		if len(m.Value)%event.WireSize != 0 {
			return status.Errorf(codes.InvalidArgument, "payload of %d bytes is not a whole number of events", len(m.Value))
		}
		for b := m.Value; len(b) > 0; b = b[event.WireSize:] {
			var e event.Event
			if err := e.UnmarshalBinary(b); err != nil {
				return status.Error(codes.InvalidArgument, err.Error())
			}
			n++
			s.received.Add(1)
			if s.handle != nil {
				s.handle(from, e)
			}
		}
	}
}
