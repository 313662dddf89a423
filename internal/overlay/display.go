package overlay

import (
	"unicode"

	"gocv.io/x/gocv"
)

// Keys recognized by the frame loop.
const (
	KeyNone      rune = -1
	KeyCalibrate rune = 'c'
	KeyQuit      rune = 'q'
	KeyEscape    rune = 27
)

// DefaultPollMs is how long the display waits for a key per frame.
const DefaultPollMs = 5

// Display is the sink frames are shown on. PollKey waits up to delayMs for a
// key and returns KeyNone when none was pressed.
type Display interface {
	Show(frame *gocv.Mat)
	PollKey(delayMs int) rune
	Close() error
}

// Window is a Display backed by an OpenCV HighGUI window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a named window.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show draws frame in the window.
func (w *Window) Show(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	w.window.IMShow(*frame)
}

// PollKey waits for a key press and normalizes it.
func (w *Window) PollKey(delayMs int) rune {
	return NormalizeKey(w.window.WaitKey(delayMs))
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// NormalizeKey masks a raw HighGUI key code to its low byte and lower-cases
// letters, so 'C' and 'c' behave the same. Negative codes mean no key.
func NormalizeKey(code int) rune {
	if code < 0 {
		return KeyNone
	}
	return unicode.ToLower(rune(code & 0xFF))
}

// IsQuit reports whether key ends the loop.
func IsQuit(key rune) bool {
	return key == KeyQuit || key == KeyEscape
}
