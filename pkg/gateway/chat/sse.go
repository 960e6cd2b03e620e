package chat

import (
	"bytes"
	"strings"
)

// sseDecoder incrementally assembles Server-Sent-Events records from an
// arbitrarily chunked byte stream. It buffers input until a complete
// blank-line-delimited record is available and extracts the record's data
// payload. Comment lines and non-data fields are legal in SSE and are
// ignored rather than treated as framing errors.
type sseDecoder struct {
	buf bytes.Buffer
}

// feed appends stream bytes to the decoder and returns the data payloads of
// every record completed by this read, in wire order.
func (d *sseDecoder) feed(p []byte) []string {
	d.buf.Write(p)
	var payloads []string
	for {
		data := d.buf.Bytes()
		end := recordEnd(data)
		if end < 0 {
			break
		}
		record := string(data[:end])
		d.buf.Next(end + delimiterLen(data[end:]))
		if payload, ok := recordData(record); ok {
			payloads = append(payloads, payload)
		}
	}
	return payloads
}

// flush drains any buffered partial record. Gateways that omit the trailing
// blank line before closing the stream still get their final record decoded.
func (d *sseDecoder) flush() (string, bool) {
	record := strings.TrimRight(d.buf.String(), "\r\n")
	d.buf.Reset()
	if record == "" {
		return "", false
	}
	return recordData(record)
}

// recordEnd locates the first blank-line delimiter in data, returning the
// offset at which the record ends or -1 if the record is still incomplete.
func recordEnd(data []byte) int {
	lf := bytes.Index(data, []byte("\n\n"))
	crlf := bytes.Index(data, []byte("\r\n\r\n"))
	switch {
	case lf < 0:
		return crlf
	case crlf < 0:
		return lf
	case crlf < lf:
		return crlf
	default:
		return lf
	}
}

func delimiterLen(data []byte) int {
	if bytes.HasPrefix(data, []byte("\r\n\r\n")) {
		return 4
	}
	return 2
}

// recordData extracts the data payload from a complete record. Multiple data
// lines are joined with newlines per the SSE framing rules; records without
// any data line produce no payload.
func recordData(record string) (string, bool) {
	var parts []string
	for _, line := range strings.Split(record, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			parts = append(parts, strings.TrimPrefix(value, " "))
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}
