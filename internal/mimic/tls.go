package mimic

import (
	"encoding/binary"
	"fmt"
	"strings"

	utls "github.com/refraction-networking/utls"

	"awgobfs/internal/junk"
)

const (
	recordHeaderLen    = 5
	handshakeHeaderLen = 4
	helloRandomOffset  = recordHeaderLen + handshakeHeaderLen + 2
	helloRandomLen     = 32
)

func helloID(fingerprint string) (utls.ClientHelloID, error) {
	switch strings.ToLower(fingerprint) {
	case "", "chrome":
		return utls.HelloChrome_Auto, nil
	case "firefox", "ff":
		return utls.HelloFirefox_Auto, nil
	case "safari":
		return utls.HelloSafari_Auto, nil
	case "ios":
		return utls.HelloIOS_Auto, nil
	case "edge":
		return utls.HelloEdge_Auto, nil
	}
	return utls.ClientHelloID{}, fmt.Errorf("%w: unknown fingerprint %q", ErrInvalidInput, fingerprint)
}

// TLSClientHello returns a descriptor for a TLS record carrying a browser
// ClientHello for serverName. The client random and legacy session ID are
// random per packet.
func TLSClientHello(serverName, fingerprint string) (*junk.Descriptor, error) {
	if serverName == "" {
		return nil, fmt.Errorf("%w: empty server name", ErrInvalidInput)
	}
	id, err := helloID(fingerprint)
	if err != nil {
		return nil, err
	}
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, fmt.Errorf("client hello spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if sni, ok := ext.(*utls.SNIExtension); ok {
			sni.ServerName = serverName
		}
	}

	uconn := utls.UClient(nil, &utls.Config{ServerName: serverName}, utls.HelloCustom)
	if err := uconn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("apply client hello preset: %w", err)
	}
	hello, err := uconn.HandshakeState.Hello.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal client hello: %w", err)
	}
	if len(hello) > junk.MessageMaxSize-recordHeaderLen {
		return nil, fmt.Errorf("%w: client hello of %d bytes", ErrInvalidInput, len(hello))
	}

	record := make([]byte, recordHeaderLen+len(hello))
	record[0] = 0x16 // handshake
	record[1] = 0x03 // TLS 1.0 record version
	record[2] = 0x01
	binary.BigEndian.PutUint16(record[3:recordHeaderLen], uint16(len(hello)))
	copy(record[recordHeaderLen:], hello)
	return helloDescriptor(record)
}

// helloDescriptor splits a ClientHello record around its random fields.
func helloDescriptor(record []byte) (*junk.Descriptor, error) {
	sidLenAt := helloRandomOffset + helloRandomLen
	if len(record) <= sidLenAt {
		return nil, fmt.Errorf("%w: truncated client hello", ErrInvalidInput)
	}
	sidLen := int(record[sidLenAt])
	sidEnd := sidLenAt + 1 + sidLen
	if len(record) < sidEnd {
		return nil, fmt.Errorf("%w: truncated session id", ErrInvalidInput)
	}
	d := junk.NewDescriptor().
		Bytes(record[:helloRandomOffset]).
		Random(helloRandomLen).
		Bytes(record[sidLenAt : sidLenAt+1])
	if sidLen > 0 {
		d.Random(sidLen)
	}
	return d.Bytes(record[sidEnd:]), nil
}
