package piper

// Wyoming framing, one event per frame:
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxPayload bounds a single audio chunk.
const maxPayload = 16 << 20

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

type wire struct {
	r *bufio.Reader
	w io.Writer
}

func newWire(rw io.ReadWriter) *wire {
	return &wire{r: bufio.NewReader(rw), w: rw}
}

func (c *wire) write(evt event, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var frame bytes.Buffer
	fmt.Fprintf(&frame, "%d %d\n", len(body), len(payload))
	frame.Write(body)
	frame.WriteByte('\n')
	frame.Write(payload)

	_, err = c.w.Write(frame.Bytes())
	return err
}

func (c *wire) read() (*event, []byte, error) {
	header, err := c.r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	jsonField, payloadField, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(jsonField)
	if err != nil || jsonLen < 0 {
		return nil, nil, fmt.Errorf("parsing json_length %q", jsonField)
	}
	payloadLen, err := strconv.Atoi(strings.TrimSpace(payloadField))
	if err != nil || payloadLen < 0 || payloadLen > maxPayload {
		return nil, nil, fmt.Errorf("parsing payload_length %q", payloadField)
	}

	body := make([]byte, jsonLen+1) // trailing newline
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt event
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}

type audioFormat struct {
	rate, width, channels int
}

func (f *audioFormat) update(data map[string]any) {
	if v, ok := data["rate"].(float64); ok && v > 0 {
		f.rate = int(v)
	}
	if v, ok := data["width"].(float64); ok && v > 0 {
		f.width = int(v)
	}
	if v, ok := data["channels"].(float64); ok && v > 0 {
		f.channels = int(v)
	}
}

// wav wraps raw little-endian PCM in a canonical 44-byte WAV header.
func (f audioFormat) wav(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(f.channels),
		uint32(f.rate),
		uint32(f.rate * f.channels * f.width), // byte rate
		uint16(f.channels * f.width),          // block align
		uint16(f.width * 8),                   // bits per sample
	} {
		_ = binary.Write(&buf, le, v)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
