package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	input := "data: Hello\n\n" +
		"data:  world\n\n" +
		"data: line one\ndata: line two\n\n" +
		": keep-alive\n\n" +
		"event: title-update\ndata: {\"title\":\"T\"}\n\n" +
		"event: update\ndata: </stream>"

	var got []Event
	require.NoError(t, ReadEvents(strings.NewReader(input), func(ev Event) error {
		got = append(got, ev)
		return nil
	}))

	assert.Equal(t, []Event{
		{Data: "Hello"},
		{Data: " world"},
		{Data: "line one\nline two"},
		{Event: "title-update", Data: `{"title":"T"}`},
		{Event: "update", Data: EndSignal},
	}, got)
}

func TestReadEventsStopsOnHandlerError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadEvents(strings.NewReader("data: a\n\ndata: b\n\n"), func(Event) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadEventsAcceptsEveryLineEnding(t *testing.T) {
	input := "data: crlf\r\ndata: second\r\n\r\n" +
		"data: bare\rdata: cr\r\r" +
		"event: update\ndata: </stream>\n\n"

	var got []Event
	require.NoError(t, ReadEvents(strings.NewReader(input), func(ev Event) error {
		got = append(got, ev)
		return nil
	}))

	assert.Equal(t, []Event{
		{Data: "crlf\nsecond"},
		{Data: "bare\ncr"},
		{Event: "update", Data: EndSignal},
	}, got)
}
