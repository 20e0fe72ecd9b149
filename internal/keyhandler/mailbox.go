package keyhandler

import "sync/atomic"

// mailbox is a depth-1 queue that overwrites on full. Post replaces any event
// the worker has not taken yet, so only the latest gesture runs.
type mailbox struct {
	pending atomic.Pointer[KeyEvent]
	ready   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

// Post stores ev in the slot, discarding any pending event, and wakes the
// worker. It never blocks.
func (m *mailbox) Post(ev KeyEvent) {
	m.pending.Store(&ev)
	select {
	case m.ready <- struct{}{}:
	default:
		// worker already signaled; it will pick up the replaced slot
	}
}

// Take empties the slot.
func (m *mailbox) Take() (KeyEvent, bool) {
	p := m.pending.Swap(nil)
	if p == nil {
		return KeyEvent{}, false
	}
	return *p, true
}

func (m *mailbox) Ready() <-chan struct{} { return m.ready }
