package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startIPC(t *testing.T, events chan Event) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "gk.sock")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runIPCServer(ctx, socket, events, discardLogger()) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errCh)
	})

	waitUntil(t, time.Second, func() bool {
		c, err := net.Dial("unix", socket)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, "ipc socket not listening")
	return socket
}

func TestIPCDeliversEvents(t *testing.T) {
	events := make(chan Event, 4)
	socket := startIPC(t, events)

	require.NoError(t, SendIPCEvent(socket, KeyInput{ScanCode: 254, Value: 1}))
	require.NoError(t, SendIPCEvent(socket, SetSetting{Key: "hardware_keys_disable", Value: "true"}))

	assert.Equal(t, KeyInput{ScanCode: 254, Value: 1, Source: "ipc"}, <-events)
	assert.Equal(t, SetSetting{Key: "hardware_keys_disable", Value: "true"}, <-events)
}

func TestIPCReportsParseErrors(t *testing.T) {
	events := make(chan Event, 4)
	socket := startIPC(t, events)

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{\"type\":\"nope\"}\n\n{\"type\":\"display_off\"}\n"))
	require.NoError(t, err)

	sc := bufio.NewScanner(conn)
	var resp IPCResponse

	require.True(t, sc.Scan())
	require.NoError(t, json.Unmarshal(sc.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "unknown event type")

	// Blank lines are skipped without a response.
	require.True(t, sc.Scan())
	require.NoError(t, json.Unmarshal(sc.Bytes(), &resp))
	assert.Equal(t, IPCResponse{Status: "ok"}, resp)
	assert.Equal(t, DisplayOff{}, <-events)
}

func TestIPCQueueFull(t *testing.T) {
	events := make(chan Event)
	socket := startIPC(t, events)

	err := SendIPCEvent(socket, DisplayOn{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event queue full")
}
