// Package sse reads a text/event-stream incrementally, one event at a time.
package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Event is one dispatched Server-Sent-Events message. Name is empty for
// unnamed events, which browsers deliver as "message".
type Event struct {
	Name string
	Data string
	ID   string
}

// Decoder reads events from a stream as they arrive.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next blocks until the next event is complete. It returns io.EOF once the
// stream ends; a trailing event without its blank line is still delivered.
func (d *Decoder) Next() (Event, error) {
	var ev Event
	var data []string
	pending := false

	for {
		line, err := d.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Event{}, err
		}
		eof := err != nil
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if pending && len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			if eof {
				return Event{}, io.EOF
			}
			ev, data, pending = Event{}, nil, false
			continue
		}

		if !strings.HasPrefix(line, ":") {
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				ev.Name = value
				pending = true
			case "data":
				data = append(data, value)
				pending = true
			case "id":
				ev.ID = value
			}
		}

		if eof {
			if pending && len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			return Event{}, io.EOF
		}
	}
}
