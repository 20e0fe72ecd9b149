// Package mediasession connects to a media bridge over WebSocket. The
// bridge reports playback state and accepts media button events; it is the
// daemon's view of "the active media session".
//
// Wire format, one JSON object per text frame:
//
//	bridge -> daemon  {"type":"playback_state","data":{"playing":true}}
//	daemon -> bridge  {"type":"media_button","data":{"keycode":85,"action":"down",...}}
package mediasession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gesturekeys/internal/keyhandler"
)

var ErrNotConnected = errors.New("media bridge not connected")

const (
	TypePlaybackState = "playback_state"
	TypeMediaButton   = "media_button"
)

// Envelope is one frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type PlaybackState struct {
	Playing bool `json:"playing"`
}

type MediaButton struct {
	KeyCode      int    `json:"keycode"`
	Action       string `json:"action"`
	DownTimeMs   int64  `json:"down_time"`
	EventTimeMs  int64  `json:"event_time"`
	NeedWakeLock bool   `json:"need_wake_lock"`
}

// Client is a reconnecting media bridge client. It implements
// keyhandler.MediaSession.
type Client struct {
	url           string
	retryInterval time.Duration
	writeTimeout  time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	playing bool
}

func New(wsURL string, retryInterval time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket URL scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	return &Client{
		url:           u.String(),
		retryInterval: retryInterval,
		writeTimeout:  2 * time.Second,
		logger:        logger.With("component", "mediasession"),
	}, nil
}

// IsMusicActive reports the last playback state. A disconnected bridge is
// not playing.
func (c *Client) IsMusicActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.playing
}

// Connected reports whether a bridge connection is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendMediaButtonEvent forwards ev to the bridge.
func (c *Client) SendMediaButtonEvent(ev keyhandler.MediaKeyEvent, needWakeLock bool) error {
	data, err := json.Marshal(MediaButton{
		KeyCode:      ev.KeyCode,
		Action:       ev.Action.String(),
		DownTimeMs:   ev.DownTime.UnixMilli(),
		EventTimeMs:  ev.EventTime.UnixMilli(),
		NeedWakeLock: needWakeLock,
	})
	if err != nil {
		return fmt.Errorf("marshal media button: %w", err)
	}
	payload, err := json.Marshal(Envelope{Type: TypeMediaButton, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		// the read loop notices the broken connection and reconnects
		return fmt.Errorf("send media button: %w", err)
	}
	return nil
}

// Run keeps a connection to the bridge open until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("media bridge connection lost; retrying...", "error", err, "retry", c.retryInterval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryInterval):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}
	conn, _, err := d.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.playing = false
	c.mu.Unlock()
	c.logger.Info("connected to media bridge", "url", c.url)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.playing = false
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.logger.Debug("ignoring malformed frame", "error", err)
		return
	}
	switch env.Type {
	case TypePlaybackState:
		var st PlaybackState
		if err := json.Unmarshal(env.Data, &st); err != nil {
			c.logger.Debug("ignoring malformed playback state", "error", err)
			return
		}
		c.mu.Lock()
		c.playing = st.Playing
		c.mu.Unlock()
		c.logger.Debug("playback state", "playing", st.Playing)
	default:
		c.logger.Debug("ignoring frame", "type", env.Type)
	}
}
