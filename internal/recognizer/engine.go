// Package recognizer turns captured audio into transcript events on a worker goroutine.
package recognizer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/logging"
	"github.com/leonardotrapani/hyprscribe/internal/metrics"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/segmenter"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

type Config struct {
	Engine         string
	ModelDir       string
	ServerURL      string
	Language       string
	Threads        int
	SampleRate     int
	PauseThreshold float64       // seconds of silence closing an utterance or sentence
	FrameTimeout   time.Duration // how long the worker waits for a frame before re-polling
	StopTimeout    time.Duration // how long Stop waits for the worker to exit
}

func DefaultConfig() Config {
	return Config{
		Engine:         EngineVoskServer,
		ServerURL:      "ws://localhost:2700",
		SampleRate:     16000,
		PauseThreshold: 1.0,
		FrameTimeout:   100 * time.Millisecond,
		StopTimeout:    5 * time.Second,
	}
}

var ErrAlreadyStarted = errors.New("engine already started")

// Engine feeds frames to an Adapter on one worker goroutine and publishes events in
// the order the adapter produced them.
type Engine struct {
	config    Config
	adapter   Adapter
	segmenter segmenter.Segmenter
	frames    <-chan recording.AudioFrame
	results   chan<- transcript.Event

	// OnError receives adapter failures. The worker keeps running after an error.
	OnError func(error)

	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	abortCh  chan struct{}
	done     chan struct{}
	timedOut bool
}

func NewEngine(config Config, adapter Adapter, frames <-chan recording.AudioFrame, results chan<- transcript.Event) *Engine {
	if config.FrameTimeout <= 0 {
		config.FrameTimeout = DefaultConfig().FrameTimeout
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultConfig().StopTimeout
	}
	if config.PauseThreshold <= 0 {
		config.PauseThreshold = segmenter.DefaultPauseThreshold
	}
	return &Engine{
		config:    config,
		adapter:   adapter,
		segmenter: segmenter.New(config.PauseThreshold),
		frames:    frames,
		results:   results,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("recognizer"),
		stopCh:    make(chan struct{}),
		abortCh:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// WithMetrics swaps the metrics sink, mostly for tests.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// Start launches the worker. An engine runs at most once.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	if e.stopped {
		return fmt.Errorf("engine already stopped")
	}
	e.started = true
	go e.run()
	e.logger.Info().Str("engine", e.config.Engine).Msg("recognition started")
	return nil
}

// Stop asks the worker to flush and exit, waiting at most StopTimeout. A worker that
// does not exit in time is abandoned with a warning. Safe before Start and repeatedly.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	started := e.started
	close(e.stopCh)
	e.mu.Unlock()

	if !started {
		if e.adapter != nil {
			if err := e.adapter.Close(); err != nil {
				e.logger.Debug().Err(err).Msg("adapter close")
			}
		}
		return
	}

	select {
	case <-e.done:
		e.logger.Info().Msg("recognition stopped")
	case <-time.After(e.config.StopTimeout):
		e.mu.Lock()
		e.timedOut = true
		e.mu.Unlock()
		close(e.abortCh)
		e.metrics.EngineStopTimeouts.Inc()
		e.logger.Warn().Dur("timeout", e.config.StopTimeout).Msg("recognition worker did not exit in time")
	}
}

// TimedOut reports whether the last Stop abandoned the worker.
func (e *Engine) TimedOut() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timedOut
}

func (e *Engine) run() {
	defer close(e.done)
	defer func() {
		if err := e.adapter.Close(); err != nil {
			e.logger.Debug().Err(err).Msg("adapter close")
		}
	}()

	timer := time.NewTimer(e.config.FrameTimeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(e.config.FrameTimeout)

		select {
		case <-e.stopCh:
			e.drain()
			e.flush()
			return
		case frame, ok := <-e.frames:
			if !ok {
				// capture ended on its own; wait for Stop so the flush happens once
				<-e.stopCh
				e.flush()
				return
			}
			e.feed(frame.Data)
		case <-timer.C:
		}
	}
}

// drain feeds frames already queued when stop was requested.
func (e *Engine) drain() {
	for {
		select {
		case frame, ok := <-e.frames:
			if !ok {
				return
			}
			e.feed(frame.Data)
		default:
			return
		}
	}
}

func (e *Engine) feed(chunk []byte) {
	res, err := e.adapter.Feed(chunk)
	if err != nil {
		e.fail(fmt.Errorf("feed audio: %w", err))
		return
	}
	e.publish(res)
}

func (e *Engine) flush() {
	res, err := e.adapter.Flush()
	if err != nil {
		e.fail(fmt.Errorf("flush: %w", err))
		return
	}
	e.publish(res)
}

// publish stops delivering once Stop has abandoned the worker, so a late result
// never reaches the queue of a later recording.
func (e *Engine) publish(res Result) {
	for _, ev := range res.Events(e.segmenter) {
		select {
		case <-e.abortCh:
			return
		default:
		}
		select {
		case e.results <- ev:
		case <-e.abortCh:
			return
		}
		if ev.Kind == transcript.Final {
			e.metrics.FinalEvents.Inc()
			e.logger.Debug().Str("text", ev.Text).Msg("final")
		} else {
			e.metrics.PartialEvents.Inc()
		}
	}
}

func (e *Engine) fail(err error) {
	e.logger.Error().Err(err).Msg("recognition error")
	if e.OnError != nil {
		e.OnError(err)
	}
}
