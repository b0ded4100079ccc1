package junk

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

func drawTag(t *rapid.T, label string) Tag {
	kind := TagKind(rapid.IntRange(0, int(TagRandomDigits)).Draw(t, label+"-kind"))
	switch kind {
	case TagBytes:
		b := rapid.SliceOfN(rapid.Byte(), 1, 32).Draw(t, label+"-bytes")
		return Tag{Kind: kind, Static: b, Length: len(b)}
	case TagCounter, TagTimestamp:
		return Tag{Kind: kind, Length: 4}
	default:
		return Tag{Kind: kind, Length: rapid.IntRange(0, 64).Draw(t, label+"-len")}
	}
}

func drawTags(t *rapid.T) []Tag {
	n := rapid.IntRange(0, 12).Draw(t, "n")
	tags := make([]Tag, n)
	for i := range tags {
		tags[i] = drawTag(t, "tag")
	}
	return tags
}

// Formatting any tag list and parsing it back is the identity.
func TestPropertyFormatParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tags := drawTags(t)
		got, err := ParseTags(FormatTags(tags))
		if err != nil {
			t.Fatalf("parse %q: %v", FormatTags(tags), err)
		}
		if len(got) != len(tags) {
			t.Fatalf("got %d tags, want %d", len(got), len(tags))
		}
		for i := range tags {
			if got[i].Kind != tags[i].Kind || got[i].Length != tags[i].Length || !bytes.Equal(got[i].Static, tags[i].Static) {
				t.Fatalf("tag %d: got %+v, want %+v", i, got[i], tags[i])
			}
		}
	})
}

// Buffer length is the sum of tag lengths; modifier regions are ordered,
// disjoint and inside the buffer; literals sit at their authored offsets.
func TestPropertyBuildLayout(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tags := drawTags(t)
		s, err := Build(FormatTags(tags))
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		total := 0
		for _, tag := range tags {
			total += tag.Length
		}
		if s.Len() != total {
			t.Fatalf("len %d, want %d", s.Len(), total)
		}

		prevEnd := 0
		for _, m := range s.Modifiers() {
			if m.Offset < prevEnd || m.End() > s.Len() {
				t.Fatalf("modifier %v overlaps or escapes buffer of %d", m, s.Len())
			}
			prevEnd = m.End()
		}

		s.Apply(counterPeer(rapid.Uint32().Draw(t, "counter")))
		off := 0
		for _, tag := range tags {
			if tag.Kind == TagBytes && !bytes.Equal(s.Bytes()[off:off+tag.Length], tag.Static) {
				t.Fatalf("literal at %d clobbered", off)
			}
			off += tag.Length
		}
	})
}

// Separator text never changes what a descriptor compiles to.
func TestPropertySeparatorsIgnored(t *testing.T) {
	sep := rapid.StringMatching(`[a-z0-9 :;,.\-]{0,8}`)
	rapid.Check(t, func(t *rapid.T) {
		tags := drawTags(t)
		var b bytes.Buffer
		for _, tag := range tags {
			b.WriteString(sep.Draw(t, "sep"))
			b.WriteString(tag.String())
		}
		b.WriteString(sep.Draw(t, "tail"))

		got, err := ParseTags(b.String())
		if err != nil {
			t.Fatalf("parse %q: %v", b.String(), err)
		}
		if FormatTags(got) != FormatTags(tags) {
			t.Fatalf("got %q, want %q", FormatTags(got), FormatTags(tags))
		}
	})
}
