package magic

import "fmt"

// MessageType identifies the WireGuard message a header stands for.
type MessageType uint8

const (
	MessageInitiation MessageType = iota + 1
	MessageResponse
	MessageCookieReply
	MessageTransport
)

func (t MessageType) String() string {
	switch t {
	case MessageInitiation:
		return "initiation"
	case MessageResponse:
		return "response"
	case MessageCookieReply:
		return "cookie-reply"
	case MessageTransport:
		return "transport"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// Set holds the H1-H4 ranges, indexed by MessageType-1.
type Set [4]Range

// DefaultSet is plain WireGuard: every header is its message type.
func DefaultSet() Set {
	return Set{
		Fixed(uint32(MessageInitiation)),
		Fixed(uint32(MessageResponse)),
		Fixed(uint32(MessageCookieReply)),
		Fixed(uint32(MessageTransport)),
	}
}

// ParseSet parses four range descriptors in H1..H4 order.
func ParseSet(h1, h2, h3, h4 string) (Set, error) {
	var s Set
	for i, text := range [4]string{h1, h2, h3, h4} {
		r, err := ParseRange(text)
		if err != nil {
			return Set{}, fmt.Errorf("h%d: %w", i+1, err)
		}
		s[i] = r
	}
	if err := s.Validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

// Validate rejects sets whose ranges overlap, since an inbound header
// must classify to exactly one message type.
func (s Set) Validate() error {
	for i := 0; i < len(s); i++ {
		for j := i + 1; j < len(s); j++ {
			if s[i].Overlaps(s[j]) {
				return fmt.Errorf("%w: h%d %s overlaps h%d %s", ErrInvalidRange, i+1, s[i], j+1, s[j])
			}
		}
	}
	return nil
}

// Range returns the range configured for t.
func (s Set) Range(t MessageType) (Range, bool) {
	if t < MessageInitiation || t > MessageTransport {
		return Range{}, false
	}
	return s[t-1], true
}

// Classify maps a received header value to its message type.
func (s Set) Classify(v uint32) (MessageType, bool) {
	for i, r := range s {
		if r.Contains(v) {
			return MessageType(i + 1), true
		}
	}
	return 0, false
}

// Generate draws an outbound header for t.
func (s Set) Generate(t MessageType) (uint32, bool) {
	r, ok := s.Range(t)
	if !ok {
		return 0, false
	}
	return r.Generate(), true
}
