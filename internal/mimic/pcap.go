package mimic

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"awgobfs/internal/junk"
)

var ErrNoDatagram = errors.New("mimic: capture has no such UDP datagram")

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// openCapture accepts both classic pcap and pcapng.
func openCapture(data []byte) (packetReader, gopacket.Decoder, error) {
	if r, err := pcapgo.NewReader(bytes.NewReader(data)); err == nil {
		return r, r.LinkType(), nil
	}
	ng, err := pcapgo.NewNgReader(bytes.NewReader(data), pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: not a pcap or pcapng capture: %v", ErrInvalidInput, err)
	}
	return ng, ng.LinkType(), nil
}

// FromPcap returns the UDP payload of the index-th UDP datagram (from 0)
// in the capture as a literal descriptor.
func FromPcap(r io.Reader, index int) (*junk.Descriptor, error) {
	payload, err := UDPPayload(r, index)
	if err != nil {
		return nil, err
	}
	return junk.NewDescriptor().Bytes(payload), nil
}

// UDPPayload is FromPcap without the conversion.
func UDPPayload(r io.Reader, index int) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative datagram index", ErrInvalidInput)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	pr, decoder, err := openCapture(data)
	if err != nil {
		return nil, err
	}

	seen := 0
	for {
		frame, _, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: index %d, capture holds %d", ErrNoDatagram, index, seen)
		}
		if err != nil {
			return nil, fmt.Errorf("read capture: %w", err)
		}
		pkt := gopacket.NewPacket(frame, decoder, gopacket.NoCopy)
		udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if seen == index {
			if len(udp.Payload) > junk.MessageMaxSize {
				return nil, fmt.Errorf("%w: datagram of %d bytes", ErrInvalidInput, len(udp.Payload))
			}
			return append([]byte(nil), udp.Payload...), nil
		}
		seen++
	}
}
