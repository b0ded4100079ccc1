package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSet(t *testing.T) {
	s := DefaultSet()
	require.NoError(t, s.Validate())
	for _, mt := range []MessageType{MessageInitiation, MessageResponse, MessageCookieReply, MessageTransport} {
		got, ok := s.Classify(uint32(mt))
		require.True(t, ok)
		assert.Equal(t, mt, got)

		v, ok := s.Generate(mt)
		require.True(t, ok)
		assert.Equal(t, uint32(mt), v)
	}
	_, ok := s.Classify(5)
	assert.False(t, ok)
}

func TestParseSet(t *testing.T) {
	s, err := ParseSet("100-199", "200-299", "300", "400-1000")
	require.NoError(t, err)

	mt, ok := s.Classify(250)
	require.True(t, ok)
	assert.Equal(t, MessageResponse, mt)

	mt, ok = s.Classify(300)
	require.True(t, ok)
	assert.Equal(t, MessageCookieReply, mt)

	_, ok = s.Classify(301)
	assert.False(t, ok)

	r, ok := s.Range(MessageTransport)
	require.True(t, ok)
	assert.Equal(t, Range{400, 1000}, r)

	_, ok = s.Range(0)
	assert.False(t, ok)
	_, ok = s.Generate(MessageType(9))
	assert.False(t, ok)
}

func TestParseSetRejects(t *testing.T) {
	_, err := ParseSet("1", "2", "x", "4")
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Contains(t, err.Error(), "h3")

	_, err = ParseSet("100-200", "150-250", "3", "4")
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Contains(t, err.Error(), "h1 100-200 overlaps h2 150-250")

	_, err = ParseSet("1", "2", "3", "3")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Range{1, 5}.Overlaps(Range{5, 9}))
	assert.True(t, Range{1, 9}.Overlaps(Range{3, 4}))
	assert.False(t, Range{1, 4}.Overlaps(Range{5, 9}))
	assert.False(t, Range{6, 9}.Overlaps(Range{1, 5}))
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "cookie-reply", MessageCookieReply.String())
	assert.Equal(t, "MessageType(7)", MessageType(7).String())
}
