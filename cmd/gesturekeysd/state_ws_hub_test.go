package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clients are built with a nil websocket.Conn; the hub guards every Close.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func newTestClient(hub *Hub, name string, buf int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, buf),
		remoteAddr: name,
		logger:     slog.Default(),
	}
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.remoteAddr+" not registered in time")
}

func runHub(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	runHub(t, hub)

	c1 := newTestClient(hub, "c1", 4)
	c2 := newTestClient(hub, "c2", 4)
	registerClient(t, hub, c1)
	registerClient(t, hub, c2)

	msg := []byte(`{"type":"display_changed","data":{"on":false}}`)
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			assert.Equal(t, string(msg), string(got), c.remoteAddr)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("%s did not receive broadcast", c.remoteAddr)
		}
	}
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	runHub(t, hub)

	slow := newTestClient(hub, "slow", 1)
	registerClient(t, hub, slow)

	// Fill the client's queue so the next broadcast cannot be delivered.
	slow.send <- []byte("pending")
	hub.broadcast <- []byte("overflow")

	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[slow]
		return !ok
	}, "slow client not removed")

	// The pending frame is still drained, then the channel reports closed.
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok, "send channel should be closed")
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	c := newTestClient(hub, "c", 4)
	registerClient(t, hub, c)

	cancel()
	<-done

	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_BroadcastWrapsEnvelope(t *testing.T) {
	hub := newTestHub(t, 4, 8)

	hub.Broadcast("zen_mode", wsModeData{Mode: "alarms"})

	var raw []byte
	select {
	case raw = <-hub.broadcast:
	default:
		t.Fatal("nothing queued")
	}

	var got struct {
		Type string          `json:"type"`
		Ts   *time.Time      `json:"ts"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "zen_mode", got.Type)
	assert.NotNil(t, got.Ts)
	assert.JSONEq(t, `{"mode":"alarms"}`, string(got.Data))
}

func TestHub_BroadcastBytesDropsWhenFull(t *testing.T) {
	hub := newTestHub(t, 1, 1)

	hub.BroadcastBytes([]byte("a"))
	hub.BroadcastBytes([]byte("b"))

	assert.Len(t, hub.broadcast, 1)
	assert.Equal(t, "a", string(<-hub.broadcast))
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
