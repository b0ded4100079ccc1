package junk

import (
	"errors"
	"fmt"
	"sync"

	"awgobfs/internal/metrics"
)

const (
	// MessageMaxSize is the transport's largest datagram; a junk packet
	// shares that bound.
	MessageMaxSize = 65535

	// MaxAllocSize caps a packet built with the message limit disabled.
	MaxAllocSize = 1 << 30
)

// Option configures a Spec before it is built.
type Option func(*Spec)

// WithMaxSize overrides MessageMaxSize. n <= 0 disables the message
// limit, leaving only MaxAllocSize.
func WithMaxSize(n int) Option {
	return func(s *Spec) { s.maxSize = n }
}

// WithEnv injects the clock and random source used by Apply.
func WithEnv(env Env) Option {
	return func(s *Spec) { s.env = env }
}

// Spec is a compiled junk packet template: a packed buffer and the table
// of regions Apply rewrites.
//
// Build runs once. Apply mutates the buffer in place and must not run
// concurrently on the same Spec; give every sender its own Clone, or hold
// one lock across Apply and the write that transmits Bytes.
type Spec struct {
	desc    string
	maxSize int
	env     Env

	once sync.Once
	err  error

	buf  []byte
	mods []Modifier
}

// New returns an unbuilt Spec for descriptor.
func New(descriptor string, opts ...Option) *Spec {
	s := &Spec{desc: descriptor, maxSize: MessageMaxSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build compiles descriptor into a ready Spec.
func Build(descriptor string, opts ...Option) (*Spec, error) {
	s := New(descriptor, opts...)
	if err := s.Build(); err != nil {
		return nil, err
	}
	return s, nil
}

// Build compiles the descriptor. Only the first call does work; later
// calls return its result. A descriptor with no bytes, empty or not,
// yields an inert Spec.
func (s *Spec) Build() error {
	s.once.Do(func() {
		s.err = s.build()
		switch {
		case s.err == nil && len(s.buf) == 0:
			metrics.IncSpecBuild(metrics.ResultInert)
		case s.err == nil:
			metrics.IncSpecBuild(metrics.ResultOK)
		case errors.Is(s.err, ErrResourceExhausted):
			metrics.IncSpecBuild(metrics.ResultNoMem)
		default:
			metrics.IncSpecBuild(metrics.ResultInvalid)
		}
	})
	return s.err
}

func (s *Spec) build() error {
	if s.desc == "" {
		return nil
	}

	// tags never outlive this call: they are either packed into buf or
	// dropped with the error.
	tags, err := ParseTags(s.desc)
	if err != nil {
		return err
	}

	total, dynamic := 0, 0
	for _, t := range tags {
		total += t.Length
		if _, ok := t.Modifier(); ok {
			dynamic++
		}
		if s.maxSize > 0 && total > s.maxSize {
			return fmt.Errorf("%w (%d bytes)", ErrTooLarge, s.maxSize)
		}
		if total > MaxAllocSize {
			return fmt.Errorf("%w: packet exceeds %d bytes", ErrResourceExhausted, MaxAllocSize)
		}
	}

	buf := make([]byte, total)
	mods := make([]Modifier, 0, dynamic)
	off := 0
	for _, t := range tags {
		if kind, ok := t.Modifier(); ok {
			mods = append(mods, Modifier{Kind: kind, Offset: off, Length: t.Length})
		} else {
			copy(buf[off:], t.Static)
		}
		off += t.Length
	}

	s.buf = buf
	s.mods = mods
	return nil
}

// Apply rewrites every dynamic region in table order. Literal bytes are
// never touched. Apply on an unbuilt, failed, freed or inert Spec does
// nothing.
func (s *Spec) Apply(peer Peer) {
	if len(s.mods) == 0 {
		return
	}
	for _, m := range s.mods {
		m.Kind.Fill(s.buf[m.Offset:m.End()], peer, s.env)
	}
	metrics.IncSpecApply()
}

// Bytes returns the packet buffer. The slice is rewritten by the next
// Apply; copy it if it must outlive that.
func (s *Spec) Bytes() []byte { return s.buf }

// AppendPacket applies the modifiers and appends the resulting packet to dst.
func (s *Spec) AppendPacket(dst []byte, peer Peer) []byte {
	s.Apply(peer)
	return append(dst, s.buf...)
}

func (s *Spec) Len() int { return len(s.buf) }

// Modifiers returns a copy of the mutation table.
func (s *Spec) Modifiers() []Modifier {
	return append([]Modifier(nil), s.mods...)
}

func (s *Spec) Descriptor() string { return s.desc }

// Inert reports whether the Spec produces no packet.
func (s *Spec) Inert() bool { return len(s.buf) == 0 }

// Err returns the build error, if any.
func (s *Spec) Err() error { return s.err }

// Free releases the buffer and table. The Spec stays built and inert.
func (s *Spec) Free() {
	s.once.Do(func() {})
	s.buf = nil
	s.mods = nil
}

// Clone builds s if needed and returns an independent copy sharing no
// mutable state, for one-spec-per-sender use.
func (s *Spec) Clone() (*Spec, error) {
	if err := s.Build(); err != nil {
		return nil, err
	}
	c := &Spec{
		desc:    s.desc,
		maxSize: s.maxSize,
		env:     s.env,
		buf:     append([]byte(nil), s.buf...),
		mods:    append([]Modifier(nil), s.mods...),
	}
	c.once.Do(func() {})
	return c, nil
}
