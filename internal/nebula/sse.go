// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nebula

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"strings"
)

// =============================================================================
// SSE FRAME DECODER
// =============================================================================

// Line prefixes of the SSE wire format consumed here. The backend sends
// at most one data line per logical chunk, so a data line is a complete
// frame on its own; there is no waiting for a blank-line terminator.
const (
	eventPrefix = "event: "
	dataPrefix  = "data: "
)

// Frame is one decoded SSE frame: the sticky event label in effect and
// the JSON payload of a single data line.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// Decoder turns a raw byte stream into a sequence of Frames.
//
// The underlying bufio.Reader accumulates bytes until a newline, so a
// line split across arbitrary chunk boundaries (including mid-rune) is
// held until the remainder arrives; partial JSON is never emitted.
type Decoder struct {
	r     *bufio.Reader
	event string // current event label, sticky until changed
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next frame, or io.EOF when the stream ends.
//
// Lines that are blank, match neither prefix, or carry unparseable JSON
// are logged and skipped; none of them abort the stream. A trailing
// partial line at end-of-stream is treated as truncation and dropped.
func (d *Decoder) Next() (Frame, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && len(strings.TrimSpace(line)) > 0 {
				// Truncated final line: no newline ever arrived, so the
				// frame cannot be trusted to be complete.
				log.Printf("sse: dropping truncated line at end of stream (%d bytes)", len(line))
			}
			if err == io.EOF {
				return Frame{}, io.EOF
			}
			return Frame{}, err
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, eventPrefix) {
			d.event = line[len(eventPrefix):]
			continue
		}

		if !strings.HasPrefix(line, dataPrefix) {
			log.Printf("sse: unexpected line format: %q", line)
			continue
		}

		payload := line[len(dataPrefix):]
		if !json.Valid([]byte(payload)) {
			// Malformed frame: logged and skipped, never fatal.
			log.Printf("sse: unparseable data line: %q", payload)
			continue
		}

		return Frame{Event: d.event, Data: json.RawMessage(payload)}, nil
	}
}
