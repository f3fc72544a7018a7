package detector

import (
	"sync"

	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/vision"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu      sync.Mutex
	symbols []gesture.Symbol
	index   int
	err     error
	calls   int
}

// NewMockDetector creates a MockDetector that yields symbols in order, one per call.
func NewMockDetector(symbols ...gesture.Symbol) *MockDetector {
	return &MockDetector{symbols: symbols}
}

// SetSymbols replaces the symbol script.
func (m *MockDetector) SetSymbols(symbols ...gesture.Symbol) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols = symbols
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted symbol. An empty symbol yields no detection.
func (m *MockDetector) Detect(frame *vision.Frame) ([]gesture.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.index >= len(m.symbols) {
		return nil, nil
	}

	s := m.symbols[m.index]
	m.index++
	if s == "" {
		return nil, nil
	}

	d := gesture.Detection{
		Symbol:     s,
		Confidence: gesture.NoConfidence,
		Source:     gesture.SourceLocal,
	}
	if frame != nil {
		d.At = frame.CapturedAt
	}
	return []gesture.Detection{d}, nil
}
