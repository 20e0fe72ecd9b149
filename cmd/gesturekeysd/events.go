package main

import (
	"encoding/json"
	"fmt"

	"gesturekeys/internal/keyhandler"
)

// ============================================================================
// Daemon Events
// ============================================================================
// Events come from input readers, the display watcher, IPC clients and the
// state WebSocket. The daemon loop is the only consumer.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// KeyInput is a raw key event from an input device or from IPC.
type KeyInput struct {
	ScanCode int    `json:"scancode"`
	Value    int32  `json:"value"` // 0=release, 1=press, 2=repeat
	Source   string `json:"source,omitempty"`
}

func (KeyInput) eventMarker() {}

// DisplayOn is sent when the panel is unblanked.
type DisplayOn struct{}

func (DisplayOn) eventMarker() {}

// DisplayOff is sent when the panel is blanked.
type DisplayOff struct{}

func (DisplayOff) eventMarker() {}

// SetSetting changes a persisted setting.
type SetSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (SetSetting) eventMarker() {}

// RequestStateSnapshot asks the loop for the current state. Internal only.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// StateSnapshot is the externally visible daemon state.
type StateSnapshot struct {
	Handler    keyhandler.Snapshot `json:"handler"`
	ZenMode    string              `json:"zen_mode"`
	RingerMode string              `json:"ringer_mode"`
	DisplayOn  bool                `json:"display_on"`
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent decodes an IPC event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "key_event":
		var ev KeyInput
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal KeyInput: %w", err)
		}
		if ev.Value < evValueRelease || ev.Value > evValueRepeat {
			return nil, fmt.Errorf("key_event: invalid value %d", ev.Value)
		}
		if ev.Source == "" {
			ev.Source = "ipc"
		}
		return ev, nil

	case "display_on":
		return DisplayOn{}, nil

	case "display_off":
		return DisplayOff{}, nil

	case "set_setting":
		var ev SetSetting
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal SetSetting: %w", err)
		}
		if ev.Key == "" {
			return nil, fmt.Errorf("set_setting: key is empty")
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}
}

// MarshalEvent encodes an event as sent by IPC clients.
func MarshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope

	switch e := ev.(type) {
	case KeyInput:
		env.Type = "key_event"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal KeyInput: %w", err)
		}
		env.Data = data

	case DisplayOn:
		env.Type = "display_on"
	case DisplayOff:
		env.Type = "display_off"

	case SetSetting:
		env.Type = "set_setting"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetSetting: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
