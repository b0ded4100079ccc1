// Package junk compiles junk packet descriptors into a packed template plus
// a table of regions that are refilled before every send.
//
// A descriptor is a run of tags:
//
//	<b 0xHEX>  literal bytes
//	<c>        4-byte send counter, network order
//	<t>        4-byte unix time, network order
//	<r N>      N random bytes
//	<rc N>     N random ASCII letters
//	<rd N>     N random ASCII digits
//
// Text between tags is ignored.
package junk

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// TagKind enumerates the directives of the descriptor language.
type TagKind uint8

const (
	TagBytes TagKind = iota
	TagCounter
	TagTimestamp
	TagRandom
	TagRandomChars
	TagRandomDigits
)

var tagKeys = [...]string{
	TagBytes:        "b",
	TagCounter:      "c",
	TagTimestamp:    "t",
	TagRandom:       "r",
	TagRandomChars:  "rc",
	TagRandomDigits: "rd",
}

func (k TagKind) String() string {
	if int(k) < len(tagKeys) {
		return tagKeys[k]
	}
	return "TagKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseTagKind maps a descriptor key to its kind.
func ParseTagKind(key string) (TagKind, bool) {
	for k, name := range tagKeys {
		if name == key {
			return TagKind(k), true
		}
	}
	return 0, false
}

// Tag is one parsed directive. Static is set only for TagBytes.
type Tag struct {
	Kind   TagKind
	Static []byte
	Length int
}

// Modifier reports the behaviour that fills this tag's region, or false
// for literal tags.
func (t Tag) Modifier() (ModifierKind, bool) {
	switch t.Kind {
	case TagCounter:
		return ModCounter, true
	case TagTimestamp:
		return ModTimestamp, true
	case TagRandom:
		return ModRandomBytes, true
	case TagRandomChars:
		return ModRandomChars, true
	case TagRandomDigits:
		return ModRandomDigits, true
	default:
		return 0, false
	}
}

func (t Tag) String() string {
	switch t.Kind {
	case TagBytes:
		return "<b 0x" + hex.EncodeToString(t.Static) + ">"
	case TagCounter, TagTimestamp:
		return "<" + t.Kind.String() + ">"
	default:
		return "<" + t.Kind.String() + " " + strconv.Itoa(t.Length) + ">"
	}
}

// ParseTags splits descriptor into tags in left-to-right order. Any
// malformed tag fails the whole descriptor with a *SyntaxError.
func ParseTags(descriptor string) ([]Tag, error) {
	var tags []Tag
	rest := descriptor
	pos := 0
	for {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			return tags, nil
		}
		offset := pos + open
		body := rest[open+1:]
		end := strings.IndexByte(body, '>')
		if end < 0 {
			return nil, &SyntaxError{Offset: offset, Tag: body, Err: ErrUnterminated}
		}
		body = body[:end]

		tag, err := parseTag(body)
		if err != nil {
			return nil, &SyntaxError{Offset: offset, Tag: body, Err: err}
		}
		tags = append(tags, tag)

		consumed := open + 1 + end + 1
		rest = rest[consumed:]
		pos += consumed
	}
}

func parseTag(body string) (Tag, error) {
	key, val, hasVal := strings.Cut(body, " ")
	kind, ok := ParseTagKind(key)
	if !ok {
		return Tag{}, ErrUnknownKey
	}

	switch kind {
	case TagBytes:
		if !hasVal {
			return Tag{}, ErrMissingValue
		}
		b, err := parseHex(val)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, Static: b, Length: len(b)}, nil
	case TagCounter, TagTimestamp:
		if hasVal {
			return Tag{}, ErrUnexpectedValue
		}
		return Tag{Kind: kind, Length: 4}, nil
	default:
		if !hasVal {
			return Tag{}, ErrMissingValue
		}
		n, err := parseLength(val)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, Length: n}, nil
	}
}

func parseHex(val string) ([]byte, error) {
	digits, ok := strings.CutPrefix(val, "0x")
	if !ok || len(digits) == 0 || len(digits)%2 != 0 {
		return nil, ErrBadHex
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, ErrBadHex
	}
	return b, nil
}

// parseLength accepts unsigned decimal that fits a signed 32-bit length.
func parseLength(val string) (int, error) {
	n, err := strconv.ParseUint(val, 10, 31)
	if err != nil {
		return 0, ErrBadLength
	}
	return int(n), nil
}

// FormatTags renders tags as a canonical descriptor that ParseTags maps
// back to the same list.
func FormatTags(tags []Tag) string {
	var sb strings.Builder
	for _, t := range tags {
		sb.WriteString(t.String())
	}
	return sb.String()
}
