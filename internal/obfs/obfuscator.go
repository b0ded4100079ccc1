package obfs

import (
	"errors"
	"fmt"

	"awgobfs/internal/config"
	"awgobfs/internal/entropy"
	"awgobfs/internal/junk"
	"awgobfs/internal/magic"
)

var (
	ErrShortPacket    = errors.New("obfs: packet too short")
	ErrUnknownType    = errors.New("obfs: unknown message type")
	ErrHeaderMismatch = errors.New("obfs: magic header outside configured range")
	ErrOversize       = errors.New("obfs: sealed packet exceeds max message size")
)

// Obfuscator is the per-peer state. Preamble mutates the private chain and
// must not run concurrently with itself; Seal and Open hold no mutable
// state and may.
type Obfuscator struct {
	profile *Profile
	chain   []*junk.Spec
}

func (o *Obfuscator) Profile() *Profile { return o.profile }

// Preamble returns the datagrams to send ahead of a handshake initiation:
// the I1-I5 packets in order, then Jc random packets of Jmin..Jmax bytes.
// Every returned slice is freshly allocated.
func (o *Obfuscator) Preamble(peer junk.Peer) [][]byte {
	p := o.profile
	out := make([][]byte, 0, p.PreambleLen())
	for _, spec := range o.chain {
		out = append(out, spec.AppendPacket(nil, peer))
	}
	for i := 0; i < p.jc; i++ {
		out = append(out, o.junkPacket())
	}
	return out
}

func (o *Obfuscator) junkPacket() []byte {
	p := o.profile
	size := int(entropy.Fast.Uint32Inclusive(uint32(p.jmin), uint32(p.jmax)))
	pkt := make([]byte, size)
	entropy.Fill(entropy.Fast, pkt)
	return pkt
}

// Seal prefixes msg with the random padding for t and replaces its
// little-endian message type field with a header drawn from the H range
// of t. msg is not modified.
func (o *Obfuscator) Seal(t magic.MessageType, msg []byte) ([]byte, error) {
	r, ok := o.profile.headers.Range(t)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if len(msg) < magic.WireSize {
		return nil, ErrShortPacket
	}
	pad := o.profile.Padding(t)
	if pad+len(msg) > o.profile.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrOversize, pad+len(msg), o.profile.maxSize)
	}
	out := make([]byte, pad+len(msg))
	entropy.Fill(entropy.Fast, out[:pad])
	copy(out[pad:], msg)
	r.PutWire(out[pad:])
	return out, nil
}

// Open reverses Seal. A packet whose length matches a padded handshake
// size is that handshake only if its header is also in the handshake's
// range; everything else is tried as transport. The returned message
// aliases pkt and has its type field restored to the WireGuard value.
func (o *Obfuscator) Open(pkt []byte) (magic.MessageType, []byte, error) {
	if t, ok := o.classifyLength(len(pkt)); ok {
		if msg, ok := o.match(t, pkt); ok {
			return t, msg, nil
		}
	}
	t := magic.MessageTransport
	pad := o.profile.Padding(t)
	if len(pkt) < pad+magic.WireSize {
		return 0, nil, ErrShortPacket
	}
	msg, ok := o.match(t, pkt)
	if !ok {
		r, _ := o.profile.headers.Range(t)
		v, _ := magic.DecodeWire(pkt[pad:])
		return 0, nil, fmt.Errorf("%w: %s header %d not in %s", ErrHeaderMismatch, t, v, r)
	}
	return t, msg, nil
}

// match strips the padding of t and checks the header against t's range.
func (o *Obfuscator) match(t magic.MessageType, pkt []byte) ([]byte, bool) {
	pad := o.profile.Padding(t)
	if len(pkt) < pad+magic.WireSize {
		return nil, false
	}
	msg := pkt[pad:]
	r, _ := o.profile.headers.Range(t)
	if !r.ValidateWire(msg) {
		return nil, false
	}
	magic.Fixed(uint32(t)).PutWire(msg)
	return msg, true
}

func (o *Obfuscator) classifyLength(n int) (magic.MessageType, bool) {
	p := o.profile
	switch n {
	case p.padding[0] + config.InitiationSize:
		return magic.MessageInitiation, true
	case p.padding[1] + config.ResponseSize:
		return magic.MessageResponse, true
	case p.padding[2] + config.CookieReplySize:
		return magic.MessageCookieReply, true
	}
	return 0, false
}
