package awg

import (
	"io"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// batchWriter sends several datagrams per syscall where the platform
// supports sendmmsg. Other platforms loop inside x/net.
type batchWriter struct {
	v4   *ipv4.PacketConn
	v6   *ipv6.PacketConn
	msgs []ipv4.Message
}

func newBatchWriter(conn *net.UDPConn) *batchWriter {
	return &batchWriter{
		v4: ipv4.NewPacketConn(conn),
		v6: ipv6.NewPacketConn(conn),
	}
}

// writeTo sends every packet to addr and returns how many went out.
func (b *batchWriter) writeTo(pkts [][]byte, addr *net.UDPAddr) (int, error) {
	b.msgs = b.msgs[:0]
	for _, pkt := range pkts {
		b.msgs = append(b.msgs, ipv4.Message{Buffers: [][]byte{pkt}, Addr: addr})
	}
	sent := 0
	for sent < len(b.msgs) {
		var (
			n   int
			err error
		)
		if addr.IP.To4() != nil {
			n, err = b.v4.WriteBatch(b.msgs[sent:], 0)
		} else {
			n, err = b.v6.WriteBatch(b.msgs[sent:], 0)
		}
		sent += n
		if err != nil {
			return sent, err
		}
		if n == 0 {
			return sent, io.ErrShortWrite
		}
	}
	return sent, nil
}
