package overlay

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDisplay is a Display for tests. It replays scripted key presses, one
// per PollKey call, and counts shown frames.
type MockDisplay struct {
	mu     sync.Mutex
	keys   []rune
	shown  int
	closed bool
}

// NewMockDisplay creates a MockDisplay that returns keys in order, then KeyNone.
func NewMockDisplay(keys ...rune) *MockDisplay {
	return &MockDisplay{keys: keys}
}

// Press appends key presses to the script.
func (d *MockDisplay) Press(keys ...rune) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, keys...)
}

func (d *MockDisplay) Show(frame *gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown++
}

func (d *MockDisplay) PollKey(delayMs int) rune {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.keys) == 0 {
		return KeyNone
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

func (d *MockDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Shown returns how many frames were shown.
func (d *MockDisplay) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// Closed reports whether Close was called.
func (d *MockDisplay) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
