package maillog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_WritesOneJSONLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	require.NoError(t, l.Record(Entry{Status: StatusSent, MessageID: "abc", To: "a@example.com", Subject: "s1", Text: "t1"}))
	require.NoError(t, l.Record(Entry{Status: StatusFailed, To: "b@example.com", Subject: "s2", Text: "t2", Error: "timeout"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, StatusSent, first.Status)
	assert.Equal(t, "abc", first.MessageID)
	assert.False(t, first.Time.IsZero(), "timestamp should be filled in")

	var second Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, StatusFailed, second.Status)
	assert.Equal(t, "timeout", second.Error)
}

func TestRecord_TruncatesHTMLExcerpt(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	require.NoError(t, l.Record(Entry{
		Status:      StatusSent,
		To:          "a@example.com",
		HTMLExcerpt: strings.Repeat("x", 5000),
	}))

	var e Entry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e))
	assert.Len(t, e.HTMLExcerpt, htmlExcerptLen)
}

func TestRecord_TruncationKeepsRunesWhole(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	// "é" is two bytes; the leading "x" shifts the pairs so the byte cap
	// lands in the middle of one, which a naive slice would split.
	require.NoError(t, l.Record(Entry{
		Status:      StatusSent,
		To:          "a@example.com",
		HTMLExcerpt: "x" + strings.Repeat("é", htmlExcerptLen),
	}))

	var e Entry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e))
	assert.True(t, utf8.ValidString(e.HTMLExcerpt))
	assert.NotContains(t, e.HTMLExcerpt, "�")
	assert.Equal(t, htmlExcerptLen-1, len(e.HTMLExcerpt))
}

func TestClose_NoFileIsNoop(t *testing.T) {
	l := NewWriter(&bytes.Buffer{})
	assert.NoError(t, l.Close())
}
