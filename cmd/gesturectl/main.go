package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// ============================================================================
// gesturectl - Command-line IPC Client
// ============================================================================
// Sends events to gesturekeysd over its Unix socket.
//
// Usage:
//   gesturectl gesture v
//   gesturectl slider center
//   gesturectl key 252 press
//   gesturectl display-off
//   gesturectl set proximity_on_wake false
//
// Options:
//   -socket PATH    Unix domain socket path (default: /run/gesturekeys.sock)
// ============================================================================

const defaultSocket = "/run/gesturekeys.sock"

// Scancodes as reported by the OnePlus 2 kernel drivers.
var gestures = map[string]int{
	"doubletap": 143,
	"circle":    250,
	"ii":        251,
	"v":         252,
	"left":      253,
	"right":     254,
}

var sliderPositions = map[string]int{
	"top":    601,
	"center": 602,
	"bottom": 603,
}

// envelope mirrors the daemon's IPC event format.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type keyData struct {
	ScanCode int    `json:"scancode"`
	Value    int32  `json:"value"`
	Source   string `json:"source"`
}

type settingData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := defaultSocket

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	msgs, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if err := send(socketPath, msgs); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// parseCommand turns command line arguments into the events to send.
func parseCommand(args []string) ([]envelope, error) {
	switch args[0] {
	case "gesture":
		if len(args) < 2 {
			return nil, fmt.Errorf("gesture requires a name")
		}
		code, ok := gestures[strings.ToLower(args[1])]
		if !ok {
			return nil, fmt.Errorf("unknown gesture: %s", args[1])
		}
		return tap(code), nil

	case "slider":
		if len(args) < 2 {
			return nil, fmt.Errorf("slider requires a position")
		}
		code, ok := sliderPositions[strings.ToLower(args[1])]
		if !ok {
			return nil, fmt.Errorf("unknown slider position: %s", args[1])
		}
		return tap(code), nil

	case "key":
		if len(args) < 2 {
			return nil, fmt.Errorf("key requires a scancode")
		}
		code, err := strconv.Atoi(args[1])
		if err != nil || code < 0 {
			return nil, fmt.Errorf("invalid scancode: %s", args[1])
		}
		action := "tap"
		if len(args) > 2 {
			action = args[2]
		}
		switch action {
		case "tap":
			return tap(code), nil
		case "press", "down":
			return []envelope{key(code, 1)}, nil
		case "release", "up":
			return []envelope{key(code, 0)}, nil
		default:
			return nil, fmt.Errorf("invalid key action: %s (must be tap, press or release)", action)
		}

	case "display-on":
		return []envelope{{Type: "display_on"}}, nil

	case "display-off":
		return []envelope{{Type: "display_off"}}, nil

	case "set":
		if len(args) < 3 {
			return nil, fmt.Errorf("set requires a key and a value")
		}
		return []envelope{{Type: "set_setting", Data: settingData{Key: args[1], Value: args[2]}}}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func key(code int, value int32) envelope {
	return envelope{Type: "key_event", Data: keyData{ScanCode: code, Value: value, Source: "gesturectl"}}
}

// tap is a press followed by a release; gesture actions fire on release.
func tap(code int) []envelope {
	return []envelope{key(code, 1), key(code, 0)}
}

// send writes each event on one connection and checks every response.
func send(socketPath string, msgs []envelope) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", m.Type, err)
		}
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return fmt.Errorf("send %s: %w", m.Type, err)
		}

		line, err := r.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		var resp IPCResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if resp.Status != "ok" {
			return fmt.Errorf("daemon error: %s", resp.Error)
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `gesturectl - Control gesturekeysd via IPC

Usage:
  gesturectl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s)

Commands:
  gesture <name>                   Simulate a gesture: doubletap, circle, ii, v, left, right
  slider <position>                Move the alert slider: top, center, bottom
  key <scancode> [tap|press|release]
                                   Send a raw key event (default tap)
  display-on, display-off          Report a display transition
  set <key> <value>                Change a persisted setting
  help, -h, --help                 Show this help message

Examples:
  gesturectl gesture v
  gesturectl slider top
  gesturectl set hardware_keys_disable true
  gesturectl -socket /tmp/gk.sock display-off
`, defaultSocket)
}
