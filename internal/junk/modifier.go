package junk

import (
	"encoding/binary"
	"io"
	"strconv"
	"time"

	"awgobfs/internal/entropy"
)

// Peer is the only peer state a junk packet reads.
type Peer interface {
	// SendCounter returns the peer's monotonic send counter.
	SendCounter() uint32
}

// Env supplies the clock and randomness used by modifiers. The zero value
// uses the wall clock and entropy.Crypto.
type Env struct {
	Clock func() time.Time
	Rand  io.Reader
}

func (e Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e Env) rand() io.Reader {
	if e.Rand != nil {
		return e.Rand
	}
	return entropy.Crypto
}

// ModifierKind enumerates the behaviours that rewrite a dynamic region.
type ModifierKind uint8

const (
	ModCounter ModifierKind = iota
	ModTimestamp
	ModRandomBytes
	ModRandomChars
	ModRandomDigits
)

var modifierNames = [...]string{
	ModCounter:      "counter",
	ModTimestamp:    "timestamp",
	ModRandomBytes:  "random",
	ModRandomChars:  "random-chars",
	ModRandomDigits: "random-digits",
}

func (k ModifierKind) String() string {
	if int(k) < len(modifierNames) {
		return modifierNames[k]
	}
	return "ModifierKind(" + strconv.Itoa(int(k)) + ")"
}

const (
	alphabetLen = 26
	letterLen   = alphabetLen * 2
	digitLen    = 10
)

// Fill overwrites every byte of dst. Counter and timestamp regions are
// always 4 bytes long. A nil peer stamps a zero counter.
func (k ModifierKind) Fill(dst []byte, peer Peer, env Env) {
	switch k {
	case ModCounter:
		var v uint32
		if peer != nil {
			v = peer.SendCounter()
		}
		binary.BigEndian.PutUint32(dst, v)
	case ModTimestamp:
		binary.BigEndian.PutUint32(dst, uint32(env.now().Unix()))
	case ModRandomBytes:
		entropy.Fill(env.rand(), dst)
	case ModRandomChars:
		r := env.rand()
		for i := range dst {
			b := entropy.Uint32n(r, letterLen)
			if b < alphabetLen {
				dst[i] = 'a' + byte(b)
			} else {
				dst[i] = 'A' + byte(b-alphabetLen)
			}
		}
	case ModRandomDigits:
		r := env.rand()
		for i := range dst {
			dst[i] = '0' + byte(entropy.Uint32n(r, digitLen))
		}
	}
}

// Modifier is one entry of a compiled spec's mutation table. It names a
// region of the packet by offset, never by pointer.
type Modifier struct {
	Kind   ModifierKind
	Offset int
	Length int
}

func (m Modifier) End() int { return m.Offset + m.Length }

func (m Modifier) String() string {
	return m.Kind.String() + "@" + strconv.Itoa(m.Offset) + "+" + strconv.Itoa(m.Length)
}
