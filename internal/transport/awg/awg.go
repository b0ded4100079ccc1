// Package awg sends obfuscated WireGuard traffic over a packet socket.
//
// A JunkSender owns one peer's Obfuscator. Applying the junk chain and
// writing the result happen under a single lock, so the counter and
// timestamp in a packet are the ones current when it left.
package awg

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"awgobfs/internal/magic"
	"awgobfs/internal/metrics"
	"awgobfs/internal/obfs"
)

// Peer carries the per-peer send counter read by <c> tags.
type Peer struct {
	counter atomic.Uint32
}

// Next advances the counter and returns the new value.
func (p *Peer) Next() uint32 { return p.counter.Add(1) }

// SendCounter returns the current counter.
func (p *Peer) SendCounter() uint32 { return p.counter.Load() }

var ErrClosed = errors.New("awg: sender closed")

type JunkSender struct {
	conn  net.PacketConn
	obfs  *obfs.Obfuscator
	peer  *Peer
	log   *zap.Logger
	batch *batchWriter

	mu     sync.Mutex
	closed bool
}

// NewJunkSender wraps conn. UDP sockets get batched writes; any other
// PacketConn is written one datagram at a time.
func NewJunkSender(conn net.PacketConn, o *obfs.Obfuscator, peer *Peer, log *zap.Logger) *JunkSender {
	if log == nil {
		log = zap.NewNop()
	}
	if peer == nil {
		peer = &Peer{}
	}
	s := &JunkSender{conn: conn, obfs: o, peer: peer, log: log}
	if udp, ok := conn.(*net.UDPConn); ok {
		s.batch = newBatchWriter(udp)
	}
	return s
}

func (s *JunkSender) Peer() *Peer { return s.peer }

// SendPreamble writes the I1-I5 chain and the Jc junk packets to addr and
// returns the number of datagrams sent.
func (s *JunkSender) SendPreamble(ctx context.Context, addr net.Addr) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	pkts := s.obfs.Preamble(s.peer)
	if len(pkts) == 0 {
		return 0, nil
	}
	if err := s.applyDeadline(ctx); err != nil {
		return 0, err
	}
	n, err := s.write(pkts, addr)
	s.account(pkts[:n])
	if err != nil {
		metrics.IncSendErrors()
		s.log.Warn("preamble send failed",
			zap.Stringer("addr", addr), zap.Int("sent", n), zap.Int("total", len(pkts)), zap.Error(err))
		return n, fmt.Errorf("send preamble: %w", err)
	}
	s.log.Debug("preamble sent", zap.Stringer("addr", addr), zap.Int("packets", n), zap.Uint32("counter", s.peer.SendCounter()))
	return n, nil
}

// Send seals msg as type t, advances the peer counter and writes it.
func (s *JunkSender) Send(ctx context.Context, addr net.Addr, t magic.MessageType, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sealed, err := s.obfs.Seal(t, msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.applyDeadline(ctx); err != nil {
		return err
	}
	if _, err := s.conn.WriteTo(sealed, addr); err != nil {
		metrics.IncSendErrors()
		return fmt.Errorf("send %s: %w", t, err)
	}
	s.peer.Next()
	return nil
}

// ReadMessage reads one datagram into buf and opens it. Datagrams that do
// not carry a configured header are returned with the Open error so the
// caller can drop them.
func (s *JunkSender) ReadMessage(buf []byte) (magic.MessageType, []byte, net.Addr, error) {
	n, addr, err := s.conn.ReadFrom(buf)
	if err != nil {
		return 0, nil, addr, err
	}
	t, msg, err := s.obfs.Open(buf[:n])
	return t, msg, addr, err
}

// Close marks the sender closed. The underlying conn is left to its owner.
func (s *JunkSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *JunkSender) write(pkts [][]byte, addr net.Addr) (int, error) {
	if udpAddr, ok := addr.(*net.UDPAddr); ok && s.batch != nil {
		return s.batch.writeTo(pkts, udpAddr)
	}
	for i, pkt := range pkts {
		if _, err := s.conn.WriteTo(pkt, addr); err != nil {
			return i, err
		}
	}
	return len(pkts), nil
}

func (s *JunkSender) applyDeadline(ctx context.Context) error {
	// A zero deadline clears any earlier one.
	deadline, _ := ctx.Deadline()
	return s.conn.SetWriteDeadline(deadline)
}

func (s *JunkSender) account(pkts [][]byte) {
	total := 0
	for _, pkt := range pkts {
		total += len(pkt)
	}
	metrics.AddJunkSent(int64(len(pkts)), int64(total))
}
