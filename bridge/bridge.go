// Package bridge relays raw bytes between TCP peers and the serial port.
//
// The bridge has a fixed table of slots, one by default. A new peer takes an
// empty slot or one whose peer has gone away; when every slot holds a live
// peer the newcomer is accepted and closed straight away. There is no
// framing and no authentication.
//
// Socket and serial reads block, so each runs in its own goroutine and only
// hands byte batches to the loop. Slots are changed only from Poll, on the
// main loop.
package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gr-butler/weathernode/metrics"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	readSize     = 1024
	queuedChunks = 64
)

var ErrClosed = errors.New("bridge closed")

type slot struct {
	conn    net.Conn
	inbound chan []byte
	alive   atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func newSlot(conn net.Conn) *slot {
	s := &slot{
		conn:    conn,
		inbound: make(chan []byte, queuedChunks),
		done:    make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

// readLoop pushes everything the peer sends, then marks the slot dead.
func (s *slot) readLoop() {
	defer s.alive.Store(false)
	buf := make([]byte, readSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case s.inbound <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// drain returns all bytes queued from the peer without waiting.
func (s *slot) drain() []byte {
	var batch []byte
	for {
		select {
		case chunk := <-s.inbound:
			batch = append(batch, chunk...)
		default:
			return batch
		}
	}
}

func (s *slot) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

type Stats struct {
	Admitted int
	Rejected int
	Evicted  int
	// serial bytes read while no peer was live
	Dropped int
}

type Bridge struct {
	listener net.Listener
	serial   io.ReadWriter
	slots    []*slot
	limiter  *rate.Limiter

	pending  chan net.Conn
	serialIn chan []byte
	closed   chan struct{}
	once     sync.Once
	stats    Stats
}

// New builds a bridge with capacity slots. pacing is the minimum gap between
// two writes to peers.
func New(listener net.Listener, serial io.ReadWriter, capacity int, pacing time.Duration) *Bridge {
	if capacity < 1 {
		capacity = 1
	}
	return &Bridge{
		listener: listener,
		serial:   serial,
		slots:    make([]*slot, capacity),
		limiter:  rate.NewLimiter(rate.Every(pacing), 1),
		pending:  make(chan net.Conn),
		serialIn: make(chan []byte, queuedChunks),
		closed:   make(chan struct{}),
	}
}

// Start launches the accept and serial reader goroutines.
func (b *Bridge) Start() {
	logger.Infof("Telnet bridge listening on [%v] with [%v] slot(s)", b.listener.Addr(), len(b.slots))
	go b.acceptLoop()
	go b.serialLoop()
}

func (b *Bridge) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			select {
			case <-b.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Errorf("Bridge accept failed [%v]", err)
			continue
		}
		select {
		case b.pending <- conn:
		case <-b.closed:
			_ = conn.Close()
			return
		}
	}
}

func (b *Bridge) serialLoop() {
	buf := make([]byte, readSize)
	for {
		n, err := b.serial.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case b.serialIn <- chunk:
			case <-b.closed:
				return
			}
		}
		if err != nil {
			select {
			case <-b.closed:
			default:
				logger.Errorf("Serial read stopped [%v]", err)
			}
			return
		}
	}
}

// Poll does one round of admission and relaying. It only waits for the
// write pacing.
func (b *Bridge) Poll(ctx context.Context) error {
	select {
	case <-b.closed:
		return ErrClosed
	default:
	}

	b.admitPending()
	b.peersToSerial()
	return b.serialToPeers(ctx)
}

func (b *Bridge) admitPending() {
	for {
		select {
		case conn := <-b.pending:
			b.admit(conn)
		default:
			return
		}
	}
}

func (b *Bridge) admit(conn net.Conn) {
	for i, s := range b.slots {
		if s != nil && s.alive.Load() {
			continue
		}
		if s != nil {
			logger.Infof("Evicting dead client [%v]", s.conn.RemoteAddr())
			s.close()
			b.stats.Evicted++
			metrics.BridgePeers.WithLabelValues("evicted").Inc()
		}
		ns := newSlot(conn)
		b.slots[i] = ns
		go ns.readLoop()
		b.stats.Admitted++
		metrics.BridgePeers.WithLabelValues("admitted").Inc()
		logger.Infof("New client: [%v] [%v]", i, conn.RemoteAddr())
		return
	}
	// no free or dead slot, reject
	logger.Debugf("Rejecting client [%v]", conn.RemoteAddr())
	_ = conn.Close()
	b.stats.Rejected++
	metrics.BridgePeers.WithLabelValues("rejected").Inc()
}

// peersToSerial moves each peer's queued bytes to the serial port in one
// write, then frees slots whose peer has gone.
func (b *Bridge) peersToSerial() {
	for i, s := range b.slots {
		if s == nil {
			continue
		}
		// read liveness first, the reader queues its last bytes before it dies
		dead := !s.alive.Load()
		if batch := s.drain(); len(batch) > 0 {
			if _, err := b.serial.Write(batch); err != nil {
				logger.Errorf("Serial write failed [%v]", err)
			}
			metrics.BridgeBytes.WithLabelValues("to_serial").Add(float64(len(batch)))
		}
		if dead {
			logger.Infof("Client disconnected [%v] [%v]", i, s.conn.RemoteAddr())
			s.close()
			b.slots[i] = nil
		}
	}
}

// serialToPeers sends the pending serial batch to every live peer.
func (b *Bridge) serialToPeers(ctx context.Context) error {
	var batch []byte
	for drained := false; !drained; {
		select {
		case chunk := <-b.serialIn:
			batch = append(batch, chunk...)
		default:
			drained = true
		}
	}
	if len(batch) == 0 {
		return nil
	}
	delivered := false
	for _, s := range b.slots {
		if s == nil || !s.alive.Load() {
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := s.conn.Write(batch); err != nil {
			logger.Debugf("Client write failed [%v]", err)
			s.alive.Store(false)
			continue
		}
		delivered = true
		metrics.BridgeBytes.WithLabelValues("to_peer").Add(float64(len(batch)))
	}
	if !delivered {
		b.stats.Dropped += len(batch)
	}
	return nil
}

// Occupied is the number of slots holding a peer, live or not yet reaped.
func (b *Bridge) Occupied() int {
	n := 0
	for _, s := range b.slots {
		if s != nil {
			n++
		}
	}
	return n
}

func (b *Bridge) Stats() Stats {
	return b.stats
}

// Close stops accepting and drops every peer. The serial port belongs to
// the caller.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		close(b.closed)
		err = b.listener.Close()
		for i, s := range b.slots {
			if s != nil {
				s.close()
				b.slots[i] = nil
			}
		}
	})
	return err
}
