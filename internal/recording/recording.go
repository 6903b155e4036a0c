// Package recording captures microphone audio through pw-record.
package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/logging"
	"github.com/leonardotrapani/hyprscribe/internal/metrics"
)

// AudioFrame is one fixed-size chunk of raw PCM.
type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	BufferSize        int // bytes per frame
	Device            string
	ChannelBufferSize int // frames queued before dropping
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16",
		BufferSize:        16000,
		Device:            "",
		ChannelBufferSize: 30,
	}
}

// Source is anything that produces audio frames for a session.
type Source interface {
	Start(ctx context.Context) (<-chan AudioFrame, error)
	Stop() error
	Dropped() uint64
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

type Recorder struct {
	config    Config
	recording atomic.Bool
	dropped   atomic.Uint64
	captured  atomic.Uint64

	// OnError receives errors raised inside the capture loop. It is called from the
	// capture goroutine when capture ends without Stop, before the frame queue closes.
	OnError func(error)

	metrics *metrics.Metrics
	logger  zerolog.Logger

	command   commandFunc
	preflight func(ctx context.Context) error

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

var _ Source = (*Recorder)(nil)

func NewRecorder(config Config) *Recorder {
	return &Recorder{
		config:    config,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("recording"),
		command:   exec.CommandContext,
		preflight: CheckPipeWireAvailable,
	}
}

// WithMetrics swaps the metrics sink, mostly for tests.
func (r *Recorder) WithMetrics(m *metrics.Metrics) *Recorder {
	r.metrics = m
	return r
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Dropped returns the number of frames discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Captured returns the number of frames delivered to the queue.
func (r *Recorder) Captured() uint64 {
	return r.captured.Load()
}

// Start spawns pw-record and returns the frame queue. The queue is closed when capture ends.
func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, error) {
	if r.recording.Load() {
		return nil, fmt.Errorf("already recording")
	}

	if err := r.validateConfig(); err != nil {
		return nil, &DeviceError{Device: r.config.Device, Err: err}
	}

	if r.preflight != nil {
		if err := r.preflight(ctx); err != nil {
			return nil, &DeviceError{Device: r.config.Device, Err: err}
		}
	}

	recordingCtx, cancel := context.WithCancel(ctx)

	cmd := r.command(recordingCtx, "pw-record", r.buildPwRecordArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &DeviceError{Device: r.config.Device, Err: fmt.Errorf("create stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, &DeviceError{Device: r.config.Device, Err: fmt.Errorf("create stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &DeviceError{Device: r.config.Device, Err: fmt.Errorf("start pw-record: %w", err)}
	}

	r.mu.Lock()
	r.cmd = cmd
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			r.logger.Debug().Str("stderr", scanner.Text()).Msg("pw-record output")
		}
	}()

	frameCh := make(chan AudioFrame, r.config.ChannelBufferSize)

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, stdout, frameCh)

	r.logger.Info().
		Int("sample_rate", r.config.SampleRate).
		Int("frame_bytes", r.config.BufferSize).
		Str("device", r.config.Device).
		Msg("capture started")

	return frameCh, nil
}

// Stop ends capture and waits until the child process is reaped. Safe to call repeatedly.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	return nil
}

func (r *Recorder) captureLoop(ctx context.Context, stdout io.Reader, frameCh chan<- AudioFrame) {
	defer func() {
		close(frameCh)
		r.recording.Store(false)

		r.mu.Lock()
		cmd := r.cmd
		r.cmd = nil
		r.mu.Unlock()
		if cmd != nil {
			_ = cmd.Wait()
		}

		r.logger.Info().
			Uint64("captured", r.captured.Load()).
			Uint64("dropped", r.dropped.Load()).
			Msg("capture stopped")
		r.wg.Done()
	}()

	lastDropLog := time.Now()
	var droppedSinceLog int

	for {
		buffer := make([]byte, r.config.BufferSize)
		_, readErr := io.ReadFull(stdout, buffer)
		if readErr != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				readErr = fmt.Errorf("pw-record exited: %w", readErr)
			} else {
				readErr = fmt.Errorf("read audio: %w", readErr)
			}
			r.emitErr(&DeviceError{Device: r.config.Device, Err: readErr})
			return
		}

		frame := AudioFrame{Data: buffer, Timestamp: time.Now()}

		select {
		case frameCh <- frame:
			r.captured.Add(1)
			r.metrics.FramesCaptured.Inc()
		case <-ctx.Done():
			return
		default:
			r.dropped.Add(1)
			r.metrics.FramesDropped.Inc()
			droppedSinceLog++
			if time.Since(lastDropLog) > time.Second {
				r.logger.Warn().Int("dropped", droppedSinceLog).Msg("frame queue full, dropping audio")
				lastDropLog = time.Now()
				droppedSinceLog = 0
			}
		}
	}
}

func (r *Recorder) emitErr(err error) {
	r.metrics.CaptureErrors.Inc()
	r.logger.Error().Err(err).Msg("capture error")
	if r.OnError != nil {
		r.OnError(err)
	}
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	if r.config.Format == "s16" {
		frameBytes := 2 * r.config.Channels
		if r.config.BufferSize%frameBytes != 0 {
			return fmt.Errorf("BufferSize %d not aligned to sample size %d", r.config.BufferSize, frameBytes)
		}
	}
	return nil
}
