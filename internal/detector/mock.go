package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results frame by frame.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	queue  [][]HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands returned by Detect once the queue is drained.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Queue appends per-frame results that Detect returns, in order, before
// falling back to the hands set with SetHands. A nil entry is a frame without hands.
func (m *MockDetector) Queue(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next queued result, the configured hands, or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// openPalmShape is a right hand, palm facing the camera, relative to the
// wrist. Index MCP to pinky MCP spans 0.15 horizontally.
var openPalmShape = [NumLandmarks]Point3D{
	Wrist:     {X: 0, Y: 0, Z: 0},
	ThumbCMC:  {X: 0.05, Y: -0.05, Z: 0.02},
	ThumbMCP:  {X: 0.12, Y: -0.10, Z: 0.03},
	ThumbIP:   {X: 0.18, Y: -0.15, Z: 0.03},
	ThumbTip:  {X: 0.23, Y: -0.20, Z: 0.03},
	IndexMCP:  {X: 0.05, Y: -0.12, Z: 0},
	IndexPIP:  {X: 0.07, Y: -0.25, Z: 0},
	IndexDIP:  {X: 0.08, Y: -0.35, Z: 0},
	IndexTip:  {X: 0.08, Y: -0.45, Z: 0},
	MiddleMCP: {X: 0, Y: -0.14, Z: 0},
	MiddlePIP: {X: 0, Y: -0.28, Z: 0},
	MiddleDIP: {X: 0, Y: -0.40, Z: 0},
	MiddleTip: {X: 0, Y: -0.52, Z: 0},
	RingMCP:   {X: -0.05, Y: -0.12, Z: 0},
	RingPIP:   {X: -0.07, Y: -0.25, Z: 0},
	RingDIP:   {X: -0.08, Y: -0.35, Z: 0},
	RingTip:   {X: -0.08, Y: -0.45, Z: 0},
	PinkyMCP:  {X: -0.10, Y: -0.10, Z: 0},
	PinkyPIP:  {X: -0.13, Y: -0.20, Z: 0},
	PinkyDIP:  {X: -0.15, Y: -0.30, Z: 0},
	PinkyTip:  {X: -0.16, Y: -0.38, Z: 0},
}

const openPalmSpan = 0.15

// OpenPalmLandmarks returns an open right palm facing the camera with the
// wrist at (wristX, wristY) and an index-to-pinky MCP span of palmSpan, all
// in normalized coordinates.
func OpenPalmLandmarks(wristX, wristY, palmSpan float64) HandLandmarks {
	scale := palmSpan / openPalmSpan

	hand := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}
	for i, p := range openPalmShape {
		hand.Points[i] = Point3D{
			X: wristX + p.X*scale,
			Y: wristY + p.Y*scale,
			Z: p.Z * scale,
		}
	}
	return hand
}
