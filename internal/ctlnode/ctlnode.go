// Package ctlnode writes to single-value kernel control files such as
// /proc/s1302/virtual_key.
package ctlnode

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Known control nodes on the OnePlus 2.
const (
	KeysDisablePath   = "/proc/s1302/virtual_key"
	ProximityNodePath = "/sys/devices/soc/soc:fpc_fpc1020/proximity_state"
)

// Node is a control file. The zero Path disables it.
type Node struct {
	Path string
}

func New(path string) *Node {
	return &Node{Path: path}
}

// Writable reports whether the process may write the node.
func (n *Node) Writable() bool {
	if n == nil || n.Path == "" {
		return false
	}
	return unix.Access(n.Path, unix.W_OK) == nil
}

// Write replaces the node contents with value.
func (n *Node) Write(value string) error {
	if n == nil || n.Path == "" {
		return fmt.Errorf("control node: no path")
	}
	f, err := os.OpenFile(n.Path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open control node: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(value); err != nil {
		return fmt.Errorf("write control node %s: %w", n.Path, err)
	}
	return nil
}

// WriteBool writes "1" or "0".
func (n *Node) WriteBool(v bool) error {
	if v {
		return n.Write("1")
	}
	return n.Write("0")
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Path
}
