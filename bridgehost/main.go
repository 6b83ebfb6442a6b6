// Command bridgehost is an engine host for remote bridges. It announces its
// gRPC port on the UDP broadcast port, receives event streams and shows them
// in a live monitor or in the log.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/viru/berrybridge/event"
	"github.com/viru/berrybridge/remote"
)

var (
	grpcPort  = flag.String("grpc-port", "31337", "gRPC listen port")
	bcastPort = flag.String("bcast-port", "8032", "UDP broadcast port used by clients for discovery")
	tui       = flag.Bool("tui", false, "show the live monitor instead of logging events")
	logFile   = flag.String("log", "bridgehost.log", "log file used while the monitor is shown")
	verbose   = flag.Bool("v", false, "log every event")
	drainWait = flag.Duration("drain", 2*time.Second, "how long connected bridges get to finish their streams on shutdown")
)

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *tui {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Can't open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := newMonitor()
	srv := remote.NewServer(func(peer string, e event.Event) {
		mon.record(peer, e)
		log.WithFields(log.Fields{
			"peer":  peer,
			"event": e,
		}).Debug("Event")
	})

	// Listen for gRPC connections.
	lis, err := net.Listen("tcp", ":"+*grpcPort)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	defer lis.Close()
	s := grpc.NewServer()
	srv.Register(s)

	// Open broadcast connection.
	bcast, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		log.Fatal(err)
	}
	defer bcast.Close()
	dst, err := net.ResolveUDPAddr("udp4", "255.255.255.255:"+*bcastPort)
	if err != nil {
		log.Fatal(err)
	}
	go func() {
		if err := remote.Announce(ctx, bcast, dst, *grpcPort, time.Second); err != nil {
			log.Error(err)
		}
	}()

	errc := make(chan error, 1)
	go func() {
		errc <- s.Serve(lis)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT)
	if *tui {
		p := tea.NewProgram(newMonitorModel(mon, srv.Streams, lis.Addr().String()))
		quit := make(chan error, 1)
		go func() {
			_, err := p.Run()
			quit <- err
		}()
		select {
		case err := <-quit:
			if err != nil {
				log.Errorf("monitor failed: %v", err)
			}
		case sig := <-c:
			log.Infof("Got %s, trying to shutdown gracefully", sig.String())
			p.Quit()
			<-quit
		case err := <-errc:
			p.Quit()
			<-quit
			log.Fatalf("gRPC server failed: %v", err)
		}
	} else {
		select {
		case sig := <-c:
			log.Infof("Got %s, trying to shutdown gracefully", sig.String())
		case err := <-errc:
			log.Fatalf("gRPC server failed: %v", err)
		}
	}

	cancel()
	stop(s, *drainWait)
	log.WithField("events", srv.Received()).Info("Bye")
}

// grpcServer is the part of *grpc.Server that stop needs.
type grpcServer interface {
	GracefulStop()
	Stop()
}

// stop lets open streams finish for up to wait, then cuts them. Bridges keep
// their stream open until they are destroyed, so a graceful stop alone may
// never return.
func stop(s grpcServer, wait time.Duration) {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(wait):
		log.Warn("bridges still connected, closing their streams")
		s.Stop()
		<-stopped
	}
}
