package client

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Event is one parsed server-sent event. Event is empty for plain data frames.
type Event struct {
	Event string
	Data  string
}

// ReadEvents parses r as an SSE stream and calls fn for each event in order.
// Multiple data lines are joined with newlines; a single space after the
// colon is dropped so leading whitespace in fragments survives.
func ReadEvents(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanEventLines)

	var (
		event   Event
		data    []string
		pending bool
	)
	dispatch := func() error {
		if !pending {
			return nil
		}
		event.Data = strings.Join(data, "\n")
		err := fn(event)
		event, data, pending = Event{}, nil, false
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event.Event = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return dispatch()
}

// scanEventLines splits on "\r\n", "\r" or "\n", the three line endings an
// event stream may use.
func scanEventLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// A trailing '\r' may be the first half of "\r\n".
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
