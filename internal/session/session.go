// Package session runs one live transcription session. All state is owned by the Run
// goroutine; callers reach it through commands posted to that goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/export"
	"github.com/leonardotrapani/hyprscribe/internal/logging"
	"github.com/leonardotrapani/hyprscribe/internal/metrics"
	"github.com/leonardotrapani/hyprscribe/internal/notes"
	"github.com/leonardotrapani/hyprscribe/internal/recognizer"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/speaker"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

var (
	ErrNoSpeakers       = errors.New("add a speaker before starting")
	ErrAlreadyRecording = errors.New("already recording")
	ErrClosed           = errors.New("session is not running")
	ErrNoSuchLine       = errors.New("no such transcript line")
)

type Config struct {
	PollInterval     time.Duration // 0 applies results as they arrive
	ResultBufferSize int
	Recording        recording.Config
	Engine           recognizer.Config
}

func DefaultConfig() Config {
	return Config{
		PollInterval:     100 * time.Millisecond,
		ResultBufferSize: 64,
		Recording:        recording.DefaultConfig(),
		Engine:           recognizer.DefaultConfig(),
	}
}

// Runner is the part of a recognition engine the session drives.
type Runner interface {
	Start() error
	Stop()
}

type SourceFactory func(cfg recording.Config, onError func(error)) recording.Source

type EngineFactory func(ctx context.Context, cfg recognizer.Config, frames <-chan recording.AudioFrame, results chan<- transcript.Event, onError func(error)) (Runner, error)

func defaultSource(cfg recording.Config, onError func(error)) recording.Source {
	r := recording.NewRecorder(cfg)
	r.OnError = onError
	return r
}

func defaultEngine(ctx context.Context, cfg recognizer.Config, frames <-chan recording.AudioFrame, results chan<- transcript.Event, onError func(error)) (Runner, error) {
	adapter, err := recognizer.NewAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	engine := recognizer.NewEngine(cfg, adapter, frames, results)
	engine.OnError = onError
	return engine, nil
}

type Option func(*Session)

func WithSourceFactory(f SourceFactory) Option { return func(s *Session) { s.newSource = f } }

func WithEngineFactory(f EngineFactory) Option { return func(s *Session) { s.newEngine = f } }

func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Session) { s.metrics = m } }

type Session struct {
	config    Config
	newSource SourceFactory
	newEngine EngineFactory
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	cmds    chan func(ctx context.Context)
	results chan transcript.Event
	done    chan struct{}
	runOnce sync.Once

	// owned by the Run goroutine
	speakers  *speaker.Registry
	acc       *transcript.Accumulator
	notes     *notes.Store
	source    recording.Source
	engine    Runner
	recording bool
	startedAt time.Time

	subMu       sync.Mutex
	subscribers []func(Update)
}

func New(config Config, opts ...Option) *Session {
	if config.ResultBufferSize <= 0 {
		config.ResultBufferSize = DefaultConfig().ResultBufferSize
	}
	if config.PollInterval < 0 {
		config.PollInterval = 0
	}

	s := &Session{
		config:    config,
		newSource: defaultSource,
		newEngine: defaultEngine,
		now:       time.Now,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("session"),
		cmds:      make(chan func(ctx context.Context)),
		results:   make(chan transcript.Event, config.ResultBufferSize),
		done:      make(chan struct{}),
		speakers:  speaker.NewRegistry(),
		notes:     notes.NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.acc = transcript.NewAccumulator(s.speakers)
	s.speakers.Subscribe(func(c speaker.Change) {
		s.publish(Update{Kind: UpdateSpeaker, Speaker: c})
	})
	return s
}

// Run owns the session state until ctx is cancelled. Recording is stopped on exit.
func (s *Session) Run(ctx context.Context) error {
	first := false
	s.runOnce.Do(func() { first = true })
	if !first {
		return errors.New("session already running")
	}
	defer close(s.done)

	var tick <-chan time.Time
	var direct <-chan transcript.Event
	if s.config.PollInterval > 0 {
		ticker := time.NewTicker(s.config.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	} else {
		direct = s.results
	}

	for {
		select {
		case <-ctx.Done():
			if err := s.stop(); err != nil {
				s.logger.Error().Err(err).Msg("stop on shutdown")
			}
			return ctx.Err()
		case cmd := <-s.cmds:
			cmd(ctx)
		case <-tick:
			s.drain()
		case ev := <-direct:
			s.apply(ev)
			s.drain()
		}
	}
}

// do runs fn on the Run goroutine and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func(runCtx context.Context)) error {
	finished := make(chan struct{})
	cmd := func(runCtx context.Context) {
		defer close(finished)
		fn(runCtx)
	}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// drain applies every queued result in arrival order.
func (s *Session) drain() {
	for {
		select {
		case ev := <-s.results:
			s.apply(ev)
		default:
			return
		}
	}
}

func (s *Session) apply(ev transcript.Event) {
	switch ev.Kind {
	case transcript.Partial:
		s.acc.OnEvent(ev)
		s.publish(Update{Kind: UpdatePartial, Partial: ev.Text})
	case transcript.Final:
		if seg, ok := s.acc.OnEvent(ev); ok {
			s.publish(Update{Kind: UpdateSegment, Segment: seg, Line: s.acc.Len() - 1})
		}
	}
}

func (s *Session) reportError(err error) {
	s.publish(Update{Kind: UpdateError, Err: err})
}

// captureFailed runs on the capture goroutine when source stops delivering audio on
// its own. The recording it belongs to is stopped from the Run goroutine.
func (s *Session) captureFailed(source recording.Source, err error) {
	s.reportError(err)
	go func() {
		_ = s.do(context.Background(), func(context.Context) {
			if !s.recording || s.source != source {
				return
			}
			s.logger.Warn().Err(err).Msg("audio capture ended, stopping session")
			if stopErr := s.stop(); stopErr != nil {
				s.logger.Error().Err(stopErr).Msg("stop after capture failure")
			}
		})
	}()
}

// Start begins capture and recognition. On failure everything that was started is
// stopped again and the causes are returned together.
func (s *Session) Start(ctx context.Context) error {
	var err error
	if doErr := s.do(ctx, func(runCtx context.Context) { err = s.start(runCtx) }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) start(runCtx context.Context) error {
	if s.recording {
		return ErrAlreadyRecording
	}
	if s.speakers.Len() == 0 {
		return ErrNoSpeakers
	}
	if _, ok := s.speakers.Active(); !ok {
		if err := s.speakers.SetActive(s.speakers.All()[0].Name); err != nil {
			return err
		}
	}

	startedAt := s.now()
	if err := s.acc.Start(transcript.Seconds(startedAt)); err != nil {
		return err
	}

	var source recording.Source
	source = s.newSource(s.config.Recording, func(err error) { s.captureFailed(source, err) })
	frames, err := source.Start(runCtx)
	if err != nil {
		s.acc.Stop()
		return errors.Join(fmt.Errorf("start audio: %w", err), source.Stop())
	}

	engine, err := s.newEngine(runCtx, s.config.Engine, frames, s.results, s.reportError)
	if err != nil {
		s.acc.Stop()
		return errors.Join(fmt.Errorf("start recognition: %w", err), source.Stop())
	}
	if err := engine.Start(); err != nil {
		s.stopEngine(engine)
		s.acc.Stop()
		return errors.Join(fmt.Errorf("start recognition: %w", err), source.Stop())
	}

	s.source = source
	s.engine = engine
	s.recording = true
	s.startedAt = startedAt
	s.metrics.SessionsStarted.Inc()

	active, _ := s.speakers.Active()
	s.logger.Info().Str("speaker", active.Name).Str("engine", s.config.Engine.Engine).Msg("session started")
	s.publish(Update{Kind: UpdateRecording, Recording: true})
	return nil
}

// Stop ends capture and recognition. Results flushed by the engine are applied before
// Stop returns. Safe to call when not recording.
func (s *Session) Stop(ctx context.Context) error {
	var err error
	if doErr := s.do(ctx, func(context.Context) { err = s.stop() }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) stop() error {
	if !s.recording {
		return nil
	}

	err := s.source.Stop()
	s.stopEngine(s.engine)
	s.acc.Stop()

	s.recording = false
	s.engine = nil
	s.logger.Info().
		Int("segments", s.acc.Len()).
		Uint64("dropped_frames", s.source.Dropped()).
		Msg("session stopped")
	s.publish(Update{Kind: UpdateRecording, Recording: false})
	if err != nil {
		return fmt.Errorf("stop audio: %w", err)
	}
	return nil
}

// stopEngine applies results while the engine flushes so a full queue cannot stall it.
func (s *Session) stopEngine(engine Runner) {
	stopped := make(chan struct{})
	go func() {
		engine.Stop()
		close(stopped)
	}()
	for {
		select {
		case ev := <-s.results:
			s.apply(ev)
		case <-stopped:
			s.drain()
			return
		}
	}
}

// Configure replaces the capture and recognition settings. A running recording keeps
// its settings; the next Start uses the new ones.
func (s *Session) Configure(ctx context.Context, cfg Config) error {
	return s.do(ctx, func(context.Context) {
		s.config.Recording = cfg.Recording
		s.config.Engine = cfg.Engine
	})
}

// Toggle starts when idle and stops when recording. It reports the new state.
func (s *Session) Toggle(ctx context.Context) (bool, error) {
	var recording bool
	var err error
	doErr := s.do(ctx, func(runCtx context.Context) {
		if s.recording {
			err = s.stop()
		} else {
			err = s.start(runCtx)
		}
		recording = s.recording
	})
	if doErr != nil {
		return false, doErr
	}
	return recording, err
}

func (s *Session) AddSpeaker(ctx context.Context, name string) (string, error) {
	var color string
	var err error
	if doErr := s.do(ctx, func(context.Context) { color, err = s.speakers.Add(name) }); doErr != nil {
		return "", doErr
	}
	return color, err
}

func (s *Session) RenameSpeaker(ctx context.Context, oldName, newName string) error {
	var err error
	if doErr := s.do(ctx, func(context.Context) { err = s.speakers.Rename(oldName, newName) }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) RecolorSpeaker(ctx context.Context, name, color string) error {
	var err error
	if doErr := s.do(ctx, func(context.Context) { err = s.speakers.Recolor(name, color) }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) UseSpeaker(ctx context.Context, name string) error {
	var err error
	if doErr := s.do(ctx, func(context.Context) { err = s.speakers.SetActive(name) }); doErr != nil {
		return doErr
	}
	return err
}

// Speakers returns the registered speakers and the active one's name.
func (s *Session) Speakers(ctx context.Context) ([]speaker.Speaker, string, error) {
	var all []speaker.Speaker
	var active string
	err := s.do(ctx, func(context.Context) {
		all = s.speakers.All()
		if a, ok := s.speakers.Active(); ok {
			active = a.Name
		}
	})
	return all, active, err
}

// AddNote attaches a note to transcript line `line`, or to the latest line with the
// active speaker when line is negative. Empty text gets notes.Placeholder.
func (s *Session) AddNote(ctx context.Context, text string, line int) (notes.Note, error) {
	var note notes.Note
	var err error
	doErr := s.do(ctx, func(context.Context) {
		if text == "" {
			text = notes.Placeholder
		}

		if line >= 0 {
			seg, ok := s.acc.Segment(line)
			if !ok {
				err = fmt.Errorf("%w: %d", ErrNoSuchLine, line)
				return
			}
			note = s.notes.Add(seg.SpeakerName, seg.SpeakerColor, seg.Label(), text)
		} else {
			name, color := transcript.UnknownSpeaker, transcript.UnknownColor
			if a, ok := s.speakers.Active(); ok {
				name, color = a.Name, a.Color
			}
			note = s.notes.Add(name, color, s.acc.LastLabel(), text)
		}
		s.publish(Update{Kind: UpdateNote, Note: note})
	})
	if doErr != nil {
		return notes.Note{}, doErr
	}
	return note, err
}

func (s *Session) Transcript(ctx context.Context) ([]transcript.Segment, error) {
	var segs []transcript.Segment
	err := s.do(ctx, func(context.Context) { segs = s.acc.Segments() })
	return segs, err
}

func (s *Session) Notes(ctx context.Context) ([]notes.Note, error) {
	var ns []notes.Note
	err := s.do(ctx, func(context.Context) { ns = s.notes.Notes() })
	return ns, err
}

func (s *Session) Partial(ctx context.Context) (string, error) {
	var p string
	err := s.do(ctx, func(context.Context) { p = s.acc.Partial() })
	return p, err
}

// Snapshot projects the session into its export document.
func (s *Session) Snapshot(ctx context.Context) (export.SessionExport, error) {
	var exp export.SessionExport
	err := s.do(ctx, func(context.Context) {
		exp = export.Build(s.speakers.All(), s.acc.Segments(), s.notes.Notes(), s.now())
	})
	return exp, err
}

type Status struct {
	Recording     bool
	ActiveSpeaker string
	Speakers      int
	Segments      int
	Notes         int
	DroppedFrames uint64
	StartedAt     time.Time
}

func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.do(ctx, func(context.Context) {
		st = Status{
			Recording: s.recording,
			Speakers:  s.speakers.Len(),
			Segments:  s.acc.Len(),
			Notes:     s.notes.Len(),
		}
		if a, ok := s.speakers.Active(); ok {
			st.ActiveSpeaker = a.Name
		}
		if s.source != nil {
			st.DroppedFrames = s.source.Dropped()
		}
		if s.recording {
			st.StartedAt = s.startedAt
		}
	})
	return st, err
}
