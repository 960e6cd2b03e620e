package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderSingleRecord(t *testing.T) {
	d := &sseDecoder{}
	payloads := d.feed([]byte("data: {\"id\":\"1\"}\n\n"))
	require.Len(t, payloads, 1)
	assert.Equal(t, `{"id":"1"}`, payloads[0])
}

func TestDecoderRecordSplitAcrossReads(t *testing.T) {
	d := &sseDecoder{}
	assert.Empty(t, d.feed([]byte("data: {\"id\":")))
	assert.Empty(t, d.feed([]byte("\"1\"}")))
	payloads := d.feed([]byte("\n\ndata: [DONE]\n\n"))
	require.Len(t, payloads, 2)
	assert.Equal(t, `{"id":"1"}`, payloads[0])
	assert.Equal(t, "[DONE]", payloads[1])
}

func TestDecoderCRLFDelimiters(t *testing.T) {
	d := &sseDecoder{}
	payloads := d.feed([]byte("data: one\r\n\r\ndata: two\r\n\r\n"))
	require.Len(t, payloads, 2)
	assert.Equal(t, "one", payloads[0])
	assert.Equal(t, "two", payloads[1])
}

func TestDecoderIgnoresCommentsAndOtherFields(t *testing.T) {
	d := &sseDecoder{}
	payloads := d.feed([]byte(": keep-alive\n\nevent: ping\nid: 7\n\ndata: hello\n\n"))
	require.Len(t, payloads, 1)
	assert.Equal(t, "hello", payloads[0])
}

func TestDecoderJoinsMultipleDataLines(t *testing.T) {
	d := &sseDecoder{}
	payloads := d.feed([]byte("data: first\ndata: second\n\n"))
	require.Len(t, payloads, 1)
	assert.Equal(t, "first\nsecond", payloads[0])
}

func TestDecoderFlushDrainsPartialRecord(t *testing.T) {
	d := &sseDecoder{}
	assert.Empty(t, d.feed([]byte("data: [DONE]")))
	payload, ok := d.flush()
	require.True(t, ok)
	assert.Equal(t, "[DONE]", payload)

	_, ok = d.flush()
	assert.False(t, ok)
}
