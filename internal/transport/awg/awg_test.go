package awg

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"awgobfs/internal/config"
	"awgobfs/internal/magic"
	"awgobfs/internal/metrics"
	"awgobfs/internal/obfs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testProfile = `
jc: 2
jmin: 20
jmax: 30
s4: 8
h4: "400-499"
i1: "<b 0xaabb><c>"
i2: "<t>"
`

func newObfuscator(t *testing.T) *obfs.Obfuscator {
	t.Helper()
	cfg, err := config.Parse([]byte(testProfile))
	require.NoError(t, err)
	p, err := obfs.NewProfile(cfg)
	require.NoError(t, err)
	return p.NewObfuscator()
}

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readN(t *testing.T, conn *net.UDPConn, n int) [][]byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out [][]byte
	buf := make([]byte, 2048)
	for len(out) < n {
		m, _, err := conn.ReadFromUDP(buf)
		require.NoError(t, err)
		out = append(out, append([]byte(nil), buf[:m]...))
	}
	return out
}

func TestPeerCounter(t *testing.T) {
	var p Peer
	assert.Zero(t, p.SendCounter())
	assert.Equal(t, uint32(1), p.Next())
	assert.Equal(t, uint32(2), p.Next())
	assert.Equal(t, uint32(2), p.SendCounter())
}

func TestSendPreambleUDP(t *testing.T) {
	src, dst := listenUDP(t), listenUDP(t)
	peer := &Peer{}
	peer.counter.Store(0x01020304)
	s := NewJunkSender(src, newObfuscator(t), peer, zaptest.NewLogger(t))
	require.NotNil(t, s.batch)

	before := metrics.SnapshotData()
	n, err := s.SendPreamble(context.Background(), dst.LocalAddr())
	require.NoError(t, err)
	require.Equal(t, 4, n)

	got := readN(t, dst, 4)
	assert.Equal(t, []byte{0xaa, 0xbb, 1, 2, 3, 4}, got[0])
	assert.Len(t, got[1], 4)
	for _, pkt := range got[2:] {
		assert.GreaterOrEqual(t, len(pkt), 20)
		assert.LessOrEqual(t, len(pkt), 30)
	}

	after := metrics.SnapshotData()
	assert.Equal(t, before.JunkPacketsSent+4, after.JunkPacketsSent)
}

func TestSendAndReadMessage(t *testing.T) {
	a, b := listenUDP(t), listenUDP(t)
	sa := NewJunkSender(a, newObfuscator(t), nil, nil)
	sb := NewJunkSender(b, newObfuscator(t), nil, nil)

	msg := make([]byte, 64)
	msg[0] = byte(magic.MessageTransport)
	copy(msg[4:], "payload")

	require.NoError(t, sa.Send(context.Background(), b.LocalAddr(), magic.MessageTransport, msg))
	assert.Equal(t, uint32(1), sa.Peer().SendCounter())

	require.NoError(t, b.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 2048)
	mt, got, from, err := sb.ReadMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, magic.MessageTransport, mt)
	assert.Equal(t, msg, got)
	assert.Equal(t, a.LocalAddr().String(), from.String())
}

func TestReadMessageRejectsJunk(t *testing.T) {
	a, b := listenUDP(t), listenUDP(t)
	sa := NewJunkSender(a, newObfuscator(t), nil, nil)
	sb := NewJunkSender(b, newObfuscator(t), nil, nil)

	_, err := sa.SendPreamble(context.Background(), b.LocalAddr())
	require.NoError(t, err)

	require.NoError(t, b.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 2048)
	_, _, _, err = sb.ReadMessage(buf)
	assert.Error(t, err)
}

// recordConn is a PacketConn that is not a *net.UDPConn.
type recordConn struct {
	mu      sync.Mutex
	written [][]byte
	failAt  int
}

var errWrite = errors.New("write refused")

func (c *recordConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.written) == c.failAt {
		return 0, errWrite
	}
	c.written = append(c.written, append([]byte(nil), p...))
	return len(p), nil
}

func (c *recordConn) ReadFrom([]byte) (int, net.Addr, error) { return 0, nil, net.ErrClosed }
func (c *recordConn) Close() error                           { return nil }
func (c *recordConn) LocalAddr() net.Addr                    { return &net.UDPAddr{} }
func (c *recordConn) SetDeadline(time.Time) error            { return nil }
func (c *recordConn) SetReadDeadline(time.Time) error        { return nil }
func (c *recordConn) SetWriteDeadline(time.Time) error       { return nil }

func TestSendPreambleSequentialFallback(t *testing.T) {
	conn := &recordConn{}
	s := NewJunkSender(conn, newObfuscator(t), nil, nil)
	assert.Nil(t, s.batch)

	n, err := s.SendPreamble(context.Background(), &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, conn.written, 4)
	assert.Equal(t, []byte{0xaa, 0xbb, 0, 0, 0, 0}, conn.written[0])
}

func TestSendPreamblePartialFailure(t *testing.T) {
	conn := &recordConn{failAt: 2}
	s := NewJunkSender(conn, newObfuscator(t), nil, nil)

	before := metrics.SnapshotData().SendErrors
	n, err := s.SendPreamble(context.Background(), &net.UDPAddr{})
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, 2, n)
	assert.Equal(t, before+1, metrics.SnapshotData().SendErrors)
}

func TestSendPreambleCanceled(t *testing.T) {
	s := NewJunkSender(&recordConn{}, newObfuscator(t), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SendPreamble(ctx, &net.UDPAddr{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Send(ctx, &net.UDPAddr{}, magic.MessageTransport, make([]byte, 32)), context.Canceled)
}

func TestSendAfterClose(t *testing.T) {
	s := NewJunkSender(&recordConn{}, newObfuscator(t), nil, nil)
	require.NoError(t, s.Close())
	_, err := s.SendPreamble(context.Background(), &net.UDPAddr{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Send(context.Background(), &net.UDPAddr{}, magic.MessageTransport, make([]byte, 32)), ErrClosed)
}

// Each preamble must carry the counter value at the moment it was applied,
// even with transport sends advancing the counter concurrently.
func TestConcurrentSendersKeepPacketsWhole(t *testing.T) {
	conn := &recordConn{}
	s := NewJunkSender(conn, newObfuscator(t), nil, nil)
	addr := &net.UDPAddr{}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := s.SendPreamble(context.Background(), addr)
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			msg := make([]byte, 32)
			for j := 0; j < 25; j++ {
				assert.NoError(t, s.Send(context.Background(), addr, magic.MessageTransport, msg))
			}
		}()
	}
	wg.Wait()

	// Preambles are written contiguously: an i1 packet is always followed
	// by i2 and two junk packets.
	preambles := 0
	for i, pkt := range conn.written {
		if len(pkt) == 6 && pkt[0] == 0xaa && pkt[1] == 0xbb {
			preambles++
			require.Less(t, i+3, len(conn.written))
			assert.Len(t, conn.written[i+1], 4)
		}
	}
	assert.Equal(t, 100, preambles)
	assert.Equal(t, uint32(100), s.Peer().SendCounter())
}
