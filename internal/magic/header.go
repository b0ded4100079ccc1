// Package magic implements magic header ranges: the protocol message type
// field is drawn from a configured range instead of a fixed constant, and
// inbound values are accepted anywhere inside it.
package magic

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"awgobfs/internal/entropy"
	"awgobfs/internal/metrics"
)

var ErrInvalidRange = errors.New("invalid magic header range")

// Range is an inclusive [Start, End] interval of header values. Start ==
// End is a fixed header.
type Range struct {
	Start uint32
	End   uint32
}

// Fixed returns the degenerate range {v, v}.
func Fixed(v uint32) Range { return Range{Start: v, End: v} }

// ParseRange parses "N" or "S-E" in decimal.
func ParseRange(text string) (Range, error) {
	first, second, hasEnd := strings.Cut(text, "-")

	start, err := parseBound(first)
	if err != nil {
		return Range{}, fmt.Errorf("%w %q: start: %v", ErrInvalidRange, text, err)
	}
	end := start
	if hasEnd {
		if end, err = parseBound(second); err != nil {
			return Range{}, fmt.Errorf("%w %q: end: %v", ErrInvalidRange, text, err)
		}
	}
	if start > end {
		return Range{}, fmt.Errorf("%w %q: start %d > end %d", ErrInvalidRange, text, start, end)
	}
	return Range{Start: start, End: end}, nil
}

func parseBound(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// MustParseRange is ParseRange for constants.
func MustParseRange(text string) Range {
	r, err := ParseRange(text)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) Degenerate() bool { return r.Start == r.End }

// String renders the range in the form ParseRange accepts.
func (r Range) String() string {
	if r.Degenerate() {
		return strconv.FormatUint(uint64(r.Start), 10)
	}
	return strconv.FormatUint(uint64(r.Start), 10) + "-" + strconv.FormatUint(uint64(r.End), 10)
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v uint32) bool {
	return v >= r.Start && v <= r.End
}

// Validate checks a received header value and records the result.
func (r Range) Validate(v uint32) bool {
	ok := r.Contains(v)
	metrics.IncHeaderCheck(ok)
	return ok
}

// Overlaps reports whether r and o share any value.
func (r Range) Overlaps(o Range) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Generate draws a uniform value from the range with entropy.Crypto.
func (r Range) Generate() uint32 {
	return r.GenerateFrom(entropy.Crypto)
}

// GenerateFrom draws a uniform value from the range using rnd.
func (r Range) GenerateFrom(rnd io.Reader) uint32 {
	metrics.IncHeaderGenerated()
	if r.Degenerate() {
		return r.Start
	}
	return entropy.Uint32Inclusive(rnd, r.Start, r.End)
}

// WireSize is the width of the header field.
const WireSize = 4

// The header replaces the WireGuard message type, a little-endian field.
var wireOrder = binary.LittleEndian

// ValidateWire validates the first WireSize bytes of b. Short input is
// rejected.
func (r Range) ValidateWire(b []byte) bool {
	if len(b) < WireSize {
		metrics.IncHeaderCheck(false)
		return false
	}
	return r.Validate(wireOrder.Uint32(b))
}

// PutWire writes a generated header into the first WireSize bytes of b
// and returns the value written.
func (r Range) PutWire(b []byte) uint32 {
	v := r.Generate()
	wireOrder.PutUint32(b, v)
	return v
}

// DecodeWire reads the header field from b.
func DecodeWire(b []byte) (uint32, bool) {
	if len(b) < WireSize {
		return 0, false
	}
	return wireOrder.Uint32(b), true
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
