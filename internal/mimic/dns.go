// Package mimic produces junk descriptors that look like other protocols:
// DNS queries, TLS ClientHello records, or datagrams lifted from a capture.
// Fields a real client would randomize per packet become random tags; the
// rest is literal.
package mimic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"awgobfs/internal/junk"
)

var ErrInvalidInput = errors.New("mimic: invalid input")

// dnsIDSize is the length of the DNS transaction ID.
const dnsIDSize = 2

// DNSQuery returns a descriptor for a recursive query of name. The
// transaction ID is random per packet.
func DNSQuery(name string, qtype uint16) (*junk.Descriptor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty DNS name", ErrInvalidInput)
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return nil, fmt.Errorf("%w: %q is not a domain name", ErrInvalidInput, name)
	}

	msg := new(dns.Msg)
	msg.RecursionDesired = true
	msg.Question = []dns.Question{{
		Name:   dns.Fqdn(name),
		Qtype:  qtype,
		Qclass: dns.ClassINET,
	}}
	packet, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack DNS query: %w", err)
	}
	return junk.NewDescriptor().Random(dnsIDSize).Bytes(packet[dnsIDSize:]), nil
}

// ParseQType maps a record type name such as "A" or "TXT" to its code.
func ParseQType(name string) (uint16, error) {
	if t, ok := dns.StringToType[strings.ToUpper(name)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: unknown DNS type %q", ErrInvalidInput, name)
}
