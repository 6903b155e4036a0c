// Package testutil holds fakes for the capture and recognition collaborators of a
// session, for tests that drive a whole daemon or CLI.
package testutil

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprscribe/internal/recognizer"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

// MockAudioFrame creates a frame of silence when data is nil.
func MockAudioFrame(data []byte) recording.AudioFrame {
	if data == nil {
		data = make([]byte, 1024)
	}
	return recording.AudioFrame{Data: data, Timestamp: time.Now()}
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Condition not met within %v", timeout)
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		out, _ := io.ReadAll(r)
		done <- string(out)
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// MockSource implements recording.Source. It emits Frames once and keeps the channel
// open until stopped.
type MockSource struct {
	Frames     []recording.AudioFrame
	StartError error
	DropCount  uint64

	mu      sync.Mutex
	stopCh  chan struct{}
	failCh  chan struct{}
	onError func(error)
	starts  atomic.Int32
	stopped atomic.Int32
}

func NewMockSource() *MockSource {
	return &MockSource{}
}

func (m *MockSource) Start(ctx context.Context) (<-chan recording.AudioFrame, error) {
	if m.StartError != nil {
		return nil, m.StartError
	}

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	m.failCh = make(chan struct{})
	stopCh, failCh := m.stopCh, m.failCh
	m.mu.Unlock()
	m.starts.Add(1)

	frameCh := make(chan recording.AudioFrame, len(m.Frames)+1)
	go func() {
		defer close(frameCh)
		for _, frame := range m.Frames {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-failCh:
				return
			case frameCh <- frame:
			}
		}
		select {
		case <-ctx.Done():
		case <-stopCh:
		case <-failCh:
		}
	}()
	return frameCh, nil
}

func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
		m.stopped.Add(1)
	}
	return nil
}

func (m *MockSource) Dropped() uint64 { return m.DropCount }

// Counts reports how many times the source was started and stopped.
func (m *MockSource) Counts() (int, int) {
	return int(m.starts.Load()), int(m.stopped.Load())
}

// Fail ends capture as if the device went away: the error callback passed to the
// factory receives err and the frame channel closes. Stop still has to be called.
func (m *MockSource) Fail(err error) {
	m.mu.Lock()
	onError, failCh := m.onError, m.failCh
	m.failCh = nil
	m.mu.Unlock()

	if onError != nil {
		onError(err)
	}
	if failCh != nil {
		close(failCh)
	}
}

func (m *MockSource) Factory() func(recording.Config, func(error)) recording.Source {
	return func(_ recording.Config, onError func(error)) recording.Source {
		m.mu.Lock()
		m.onError = onError
		m.mu.Unlock()
		return m
	}
}

// MockEngine stands in for a recognition engine. Tests push events through it as if
// they had been recognized; Flush events are published on Stop.
type MockEngine struct {
	Flush []transcript.Event

	mu      sync.Mutex
	config  recognizer.Config
	results chan<- transcript.Event
	running bool
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Bind records the queue the engine publishes to, as an engine factory would.
func (m *MockEngine) Bind(cfg recognizer.Config, results chan<- transcript.Event) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	m.results = results
	return m
}

func (m *MockEngine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	return nil
}

func (m *MockEngine) Stop() {
	m.mu.Lock()
	results, flush, running := m.results, m.Flush, m.running
	m.running = false
	m.mu.Unlock()
	if !running {
		return
	}
	for _, ev := range flush {
		results <- ev
	}
}

// Push publishes ev as a recognition result.
func (m *MockEngine) Push(ev transcript.Event) {
	m.mu.Lock()
	results := m.results
	m.mu.Unlock()
	results <- ev
}

func (m *MockEngine) Config() recognizer.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

func (m *MockEngine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
