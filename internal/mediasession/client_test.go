package mediasession

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturekeys/internal/keyhandler"
)

// bridge is a test media bridge that records received frames and lets the
// test push frames to the connected client.
type bridge struct {
	srv      *httptest.Server
	mu       sync.Mutex
	conn     *websocket.Conn
	received []Envelope
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	b := &bridge{}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if json.Unmarshal(msg, &env) == nil {
				b.mu.Lock()
				b.received = append(b.received, env)
				b.mu.Unlock()
			}
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *bridge) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *bridge) send(t *testing.T, v string) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotNil(t, b.conn)
	require.NoError(t, b.conn.WriteMessage(websocket.TextMessage, []byte(v)))
}

func (b *bridge) frames() []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Envelope(nil), b.received...)
}

func (b *bridge) dropClient() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

func startClient(t *testing.T, wsURL string) *Client {
	t.Helper()
	c, err := New(wsURL, 20*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("http://localhost:1234", 0, nil)
	assert.Error(t, err)
	_, err = New("://", 0, nil)
	assert.Error(t, err)
}

func TestSendWithoutConnection(t *testing.T) {
	c, err := New("ws://127.0.0.1:1/bridge", 0, nil)
	require.NoError(t, err)
	assert.False(t, c.IsMusicActive())
	assert.ErrorIs(t, c.SendMediaButtonEvent(keyhandler.MediaKeyEvent{}, true), ErrNotConnected)
}

func TestPlaybackStateAndButtons(t *testing.T) {
	b := newBridge(t)
	c := startClient(t, b.url())
	require.Eventually(t, c.Connected, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, c.IsMusicActive())
	b.send(t, `{"type":"playback_state","data":{"playing":true}}`)
	require.Eventually(t, c.IsMusicActive, 2*time.Second, 5*time.Millisecond)

	b.send(t, `not json`)
	b.send(t, `{"type":"something_else"}`)

	now := time.UnixMilli(1700000000000)
	ev := keyhandler.MediaKeyEvent{DownTime: now, EventTime: now, Action: keyhandler.ActionDown, KeyCode: keyhandler.KeycodeMediaNext}
	require.NoError(t, c.SendMediaButtonEvent(ev, true))

	require.Eventually(t, func() bool { return len(b.frames()) == 1 }, 2*time.Second, 5*time.Millisecond)
	f := b.frames()[0]
	assert.Equal(t, TypeMediaButton, f.Type)
	var mb MediaButton
	require.NoError(t, json.Unmarshal(f.Data, &mb))
	assert.Equal(t, MediaButton{
		KeyCode:      keyhandler.KeycodeMediaNext,
		Action:       "down",
		DownTimeMs:   1700000000000,
		EventTimeMs:  1700000000000,
		NeedWakeLock: true,
	}, mb)
	assert.True(t, c.IsMusicActive(), "malformed frames do not reset state")
}

func TestReconnectResetsPlayback(t *testing.T) {
	b := newBridge(t)
	c := startClient(t, b.url())
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil
	}, 2*time.Second, 5*time.Millisecond)

	b.send(t, `{"type":"playback_state","data":{"playing":true}}`)
	require.Eventually(t, c.IsMusicActive, 2*time.Second, 5*time.Millisecond)

	b.dropClient()
	require.Eventually(t, func() bool { return !c.IsMusicActive() }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil
	}, 2*time.Second, 5*time.Millisecond, "client reconnects")
}

var _ keyhandler.MediaSession = (*Client)(nil)
