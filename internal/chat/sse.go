package chat

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/trogers1052/portfolio-advisor/internal/models"
)

// eventPrefix marks the lines of the stream that carry structured events
const eventPrefix = "data:"

// lineDecoder incrementally splits a byte stream into newline-delimited
// records. Chunks may land on any byte boundary, so the trailing partial
// line is held back and prepended to the next chunk instead of being
// parsed prematurely.
type lineDecoder struct {
	buf []byte
}

// feed appends a chunk and returns every complete line it unlocked
func (d *lineDecoder) feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, string(d.buf[:i]))
		d.buf = d.buf[i+1:]
	}
}

// parseEvent extracts a structured event from one raw line. ok is false
// for blank lines, non-event lines, and malformed JSON; a bad record never
// aborts the read loop.
func parseEvent(line string) (models.StreamEvent, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, eventPrefix) {
		return models.StreamEvent{}, false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
	if payload == "" {
		return models.StreamEvent{}, false
	}

	var event models.StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return models.StreamEvent{}, false
	}
	if event.Type == "" {
		return models.StreamEvent{}, false
	}
	return event, true
}
