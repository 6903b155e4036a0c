package recognizer

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/metrics"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

type fakeAdapter struct {
	mu       sync.Mutex
	feed     func(chunk []byte) (Result, error)
	flush    Result
	closeErr error
	fed      int
	flushed  int
	closed   int
}

func (f *fakeAdapter) Feed(chunk []byte) (Result, error) {
	f.mu.Lock()
	f.fed++
	feed := f.feed
	f.mu.Unlock()
	if feed == nil {
		return Result{}, nil
	}
	return feed(chunk)
}

func (f *fakeAdapter) Flush() (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
	return f.flush, nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeAdapter) counts() (fed, flushed, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fed, f.flushed, f.closed
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameTimeout = 10 * time.Millisecond
	cfg.StopTimeout = time.Second
	return cfg
}

func newTestEngine(cfg Config, adapter Adapter, frames chan recording.AudioFrame, results chan transcript.Event) (*Engine, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewEngine(cfg, adapter, frames, results).WithMetrics(m), m
}

func collect(results chan transcript.Event) []transcript.Event {
	var events []transcript.Event
	for {
		select {
		case ev := <-results:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestEngine_PublishesInOrderAndFlushesOnStop(t *testing.T) {
	frames := make(chan recording.AudioFrame, 10)
	results := make(chan transcript.Event, 10)

	adapter := &fakeAdapter{
		feed: func(chunk []byte) (Result, error) {
			switch string(chunk) {
			case "a":
				return PartialResult("hel"), nil
			case "b":
				return PartialResult(""), nil
			case "c":
				return FinalResult("hello", []Word{{Word: "hello", Start: 0.5, End: 0.9}}), nil
			}
			return Result{}, nil
		},
		flush: FinalResult("bye", nil),
	}
	engine, m := newTestEngine(testConfig(), adapter, frames, results)

	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for _, s := range []string{"a", "b", "c"} {
		frames <- recording.AudioFrame{Data: []byte(s)}
	}
	engine.Stop()

	events := collect(results)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != transcript.Partial || events[0].Text != "hel" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Kind != transcript.Final || events[1].Text != "hello" || *events[1].Start != 0.5 || *events[1].End != 0.9 {
		t.Errorf("event 1 = %+v", events[1])
	}
	if events[2].Kind != transcript.Final || events[2].Text != "bye" || events[2].Start != nil {
		t.Errorf("event 2 = %+v", events[2])
	}

	fed, flushed, closed := adapter.counts()
	if fed != 3 || flushed != 1 || closed != 1 {
		t.Errorf("fed=%d flushed=%d closed=%d", fed, flushed, closed)
	}
	if got := testutil.ToFloat64(m.FinalEvents); got != 2 {
		t.Errorf("final events metric = %v", got)
	}
	if got := testutil.ToFloat64(m.PartialEvents); got != 1 {
		t.Errorf("partial events metric = %v", got)
	}
}

func TestEngine_StopBeforeStartAndTwice(t *testing.T) {
	adapter := &fakeAdapter{}
	engine, _ := newTestEngine(testConfig(), adapter, make(chan recording.AudioFrame), make(chan transcript.Event, 1))

	engine.Stop()
	engine.Stop()

	_, flushed, closed := adapter.counts()
	if flushed != 0 {
		t.Errorf("unstarted engine should not flush, flushed=%d", flushed)
	}
	if closed != 1 {
		t.Errorf("adapter should be closed once, closed=%d", closed)
	}
	if err := engine.Start(); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestEngine_StopBeforeStartLogsCloseError(t *testing.T) {
	adapter := &fakeAdapter{closeErr: errors.New("socket already gone")}
	engine, _ := newTestEngine(testConfig(), adapter, make(chan recording.AudioFrame), make(chan transcript.Event, 1))
	var buf bytes.Buffer
	engine.logger = zerolog.New(&buf).Level(zerolog.DebugLevel)

	engine.Stop()

	if _, _, closed := adapter.counts(); closed != 1 {
		t.Errorf("adapter should be closed once, closed=%d", closed)
	}
	if out := buf.String(); !strings.Contains(out, "adapter close") || !strings.Contains(out, "socket already gone") {
		t.Errorf("close error not logged: %q", out)
	}
}

func TestEngine_StartTwice(t *testing.T) {
	engine, _ := newTestEngine(testConfig(), &fakeAdapter{}, make(chan recording.AudioFrame), make(chan transcript.Event, 1))
	if err := engine.Start(); err != nil {
		t.Fatal(err)
	}
	defer engine.Stop()
	if err := engine.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestEngine_FeedErrorIsReportedAndWorkerContinues(t *testing.T) {
	frames := make(chan recording.AudioFrame, 4)
	results := make(chan transcript.Event, 4)
	adapter := &fakeAdapter{
		feed: func(chunk []byte) (Result, error) {
			if string(chunk) == "bad" {
				return Result{}, errors.New("decoder exploded")
			}
			return FinalResult(string(chunk), nil), nil
		},
	}
	engine, _ := newTestEngine(testConfig(), adapter, frames, results)

	var mu sync.Mutex
	var reported []error
	engine.OnError = func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}

	if err := engine.Start(); err != nil {
		t.Fatal(err)
	}
	frames <- recording.AudioFrame{Data: []byte("bad")}
	frames <- recording.AudioFrame{Data: []byte("good")}
	engine.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 {
		t.Fatalf("expected 1 reported error, got %v", reported)
	}
	events := collect(results)
	if len(events) != 1 || events[0].Text != "good" {
		t.Errorf("events = %+v", events)
	}
}

func TestEngine_ClosedFrameQueueWaitsForStop(t *testing.T) {
	frames := make(chan recording.AudioFrame, 1)
	results := make(chan transcript.Event, 2)
	adapter := &fakeAdapter{flush: FinalResult("tail", nil)}
	engine, _ := newTestEngine(testConfig(), adapter, frames, results)

	if err := engine.Start(); err != nil {
		t.Fatal(err)
	}
	close(frames)
	time.Sleep(30 * time.Millisecond)

	if _, flushed, _ := adapter.counts(); flushed != 0 {
		t.Error("engine should not flush before Stop")
	}
	engine.Stop()
	events := collect(results)
	if len(events) != 1 || events[0].Text != "tail" {
		t.Errorf("events = %+v", events)
	}
}

func TestEngine_StopTimeout(t *testing.T) {
	frames := make(chan recording.AudioFrame, 1)
	results := make(chan transcript.Event, 1)
	release := make(chan struct{})
	adapter := &fakeAdapter{
		feed: func(chunk []byte) (Result, error) {
			<-release
			return Result{}, nil
		},
	}
	cfg := testConfig()
	cfg.StopTimeout = 50 * time.Millisecond
	engine, m := newTestEngine(cfg, adapter, frames, results)

	if err := engine.Start(); err != nil {
		t.Fatal(err)
	}
	frames <- recording.AudioFrame{Data: []byte("stuck")}
	// let the worker pick the frame up
	deadline := time.Now().Add(time.Second)
	for {
		if fed, _, _ := adapter.counts(); fed == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now()
	engine.Stop()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop took %v, expected to give up after the timeout", elapsed)
	}
	if !engine.TimedOut() {
		t.Error("TimedOut should be true")
	}
	if got := testutil.ToFloat64(m.EngineStopTimeouts); got != 1 {
		t.Errorf("stop timeout metric = %v", got)
	}
	close(release)
}

func TestEngine_AbandonedWorkerPublishesNothing(t *testing.T) {
	for i := 0; i < 20; i++ {
		frames := make(chan recording.AudioFrame, 1)
		results := make(chan transcript.Event, 4)
		release := make(chan struct{})
		adapter := &fakeAdapter{
			feed: func(chunk []byte) (Result, error) {
				<-release
				return FinalResult("late", nil), nil
			},
		}
		cfg := testConfig()
		cfg.StopTimeout = 5 * time.Millisecond
		engine, _ := newTestEngine(cfg, adapter, frames, results)

		if err := engine.Start(); err != nil {
			t.Fatal(err)
		}
		frames <- recording.AudioFrame{Data: []byte("stuck")}
		for {
			if fed, _, _ := adapter.counts(); fed == 1 {
				break
			}
			time.Sleep(time.Millisecond)
		}

		engine.Stop()
		if !engine.TimedOut() {
			t.Fatal("Stop should have given up on the worker")
		}
		// the queue has room, yet the late result must not land in it
		close(release)
		select {
		case <-engine.done:
		case <-time.After(time.Second):
			t.Fatal("worker did not exit after release")
		}
		if events := collect(results); len(events) != 0 {
			t.Fatalf("run %d: abandoned worker published %+v", i, events)
		}
	}
}

func TestEngine_SplitsFinalsAtPauses(t *testing.T) {
	frames := make(chan recording.AudioFrame, 1)
	results := make(chan transcript.Event, 10)
	adapter := &fakeAdapter{
		feed: func(chunk []byte) (Result, error) {
			return FinalResult("hello there how are you", []Word{
				{Word: "hello", Start: 0.0, End: 0.4},
				{Word: "there", Start: 0.5, End: 0.9},
				{Word: "how", Start: 2.5, End: 2.7},
				{Word: "are", Start: 2.8, End: 2.9},
				{Word: "you", Start: 3.0, End: 3.2},
			}), nil
		},
	}
	cfg := testConfig()
	cfg.PauseThreshold = 1.0
	engine, m := newTestEngine(cfg, adapter, frames, results)

	if err := engine.Start(); err != nil {
		t.Fatal(err)
	}
	frames <- recording.AudioFrame{Data: []byte("x")}
	engine.Stop()

	events := collect(results)
	if len(events) != 2 {
		t.Fatalf("expected 2 finals, got %d: %+v", len(events), events)
	}
	if events[0].Text != "hello there" || *events[0].Start != 0.0 || *events[0].End != 0.9 {
		t.Errorf("first sentence = %+v", events[0])
	}
	if events[1].Text != "how are you" || *events[1].Start != 2.5 || *events[1].End != 3.2 {
		t.Errorf("second sentence = %+v", events[1])
	}
	if got := testutil.ToFloat64(m.FinalEvents); got != 2 {
		t.Errorf("final events metric = %v", got)
	}
}
