package keyhandler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailboxKeepsLatest(t *testing.T) {
	m := newMailbox()
	m.Post(up(ScanGestureV))
	m.Post(up(ScanGestureII))

	select {
	case <-m.Ready():
	default:
		t.Fatal("expected ready signal")
	}

	ev, ok := m.Take()
	assert.True(t, ok)
	assert.Equal(t, ScanGestureII, ev.ScanCode)

	_, ok = m.Take()
	assert.False(t, ok)

	select {
	case <-m.Ready():
		t.Fatal("unexpected second signal")
	default:
	}
}
