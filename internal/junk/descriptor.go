package junk

// Descriptor assembles a descriptor programmatically. The zero value is an
// empty descriptor.
type Descriptor struct {
	tags []Tag
}

func NewDescriptor() *Descriptor { return &Descriptor{} }

// Bytes appends a literal. Empty literals are skipped since <b 0x> does
// not parse.
func (d *Descriptor) Bytes(b []byte) *Descriptor {
	if len(b) == 0 {
		return d
	}
	d.tags = append(d.tags, Tag{Kind: TagBytes, Static: append([]byte(nil), b...), Length: len(b)})
	return d
}

func (d *Descriptor) Counter() *Descriptor {
	d.tags = append(d.tags, Tag{Kind: TagCounter, Length: 4})
	return d
}

func (d *Descriptor) Timestamp() *Descriptor {
	d.tags = append(d.tags, Tag{Kind: TagTimestamp, Length: 4})
	return d
}

func (d *Descriptor) Random(n int) *Descriptor { return d.dynamic(TagRandom, n) }
func (d *Descriptor) Chars(n int) *Descriptor  { return d.dynamic(TagRandomChars, n) }
func (d *Descriptor) Digits(n int) *Descriptor { return d.dynamic(TagRandomDigits, n) }

func (d *Descriptor) dynamic(kind TagKind, n int) *Descriptor {
	if n < 0 {
		n = 0
	}
	d.tags = append(d.tags, Tag{Kind: kind, Length: n})
	return d
}

// Tags returns the assembled tags.
func (d *Descriptor) Tags() []Tag { return append([]Tag(nil), d.tags...) }

// Len is the packet size the descriptor compiles to.
func (d *Descriptor) Len() int {
	n := 0
	for _, t := range d.tags {
		n += t.Length
	}
	return n
}

func (d *Descriptor) String() string { return FormatTags(d.tags) }
