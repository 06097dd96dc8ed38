package feed

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastJSON(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()

	hub.Add(server)
	assert.Equal(t, 1, hub.Count())

	due := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	go hub.BroadcastJSON(LendingEvent{
		Type:      EventBookBorrowed,
		BookID:    "b1",
		BookTitle: "1984",
		UserID:    "u1",
		DueAt:     &due,
		At:        time.Now().UTC(),
	})

	reader := bufio.NewReader(client)
	line, err := reader.ReadBytes('\n')
	require.NoError(t, err)

	var ev LendingEvent
	require.NoError(t, json.Unmarshal(line, &ev))
	assert.Equal(t, EventBookBorrowed, ev.Type)
	assert.Equal(t, "b1", ev.BookID)
	assert.Equal(t, "1984", ev.BookTitle)
	require.NotNil(t, ev.DueAt)
	assert.Equal(t, due, ev.DueAt.UTC())
}

func TestBroadcastJSON_EvictsDeadClients(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	hub.Add(server)
	require.Equal(t, 1, hub.Count())

	client.Close()
	server.Close()

	hub.BroadcastJSON(LendingEvent{Type: EventBookReturned, BookID: "b1"})
	assert.Equal(t, 0, hub.Count())
}

func TestRemove(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()

	hub.Add(server)
	hub.Remove(server)
	assert.Equal(t, 0, hub.Count())

	stats := hub.Stats()
	assert.Equal(t, 0, stats.TCPClients)
	assert.Equal(t, 0, stats.WSClients)
}

func TestWelcome(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go hub.Welcome(server)

	reader := bufio.NewReader(client)
	line, err := reader.ReadBytes('\n')
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(line, &msg))
	assert.Equal(t, "welcome", msg["type"])
	assert.Equal(t, "connected", msg["message"])
}
