package recording

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/leonardotrapani/hyprscribe/internal/metrics"
)

// scriptRecorder replaces pw-record with a shell script writing to stdout.
func scriptRecorder(config Config, script string) *Recorder {
	r := NewRecorder(config).WithMetrics(metrics.NewMetrics(prometheus.NewRegistry()))
	r.preflight = nil
	r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
	return r
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.SampleRate != 16000 {
		t.Errorf("default sample rate should be 16000, got %d", config.SampleRate)
	}
	if config.Channels != 1 {
		t.Errorf("default channels should be 1, got %d", config.Channels)
	}
	if config.Format != "s16" {
		t.Errorf("default format should be s16, got %s", config.Format)
	}
	if config.BufferSize != 16000 {
		t.Errorf("default buffer size should be 16000, got %d", config.BufferSize)
	}
	if config.ChannelBufferSize != 30 {
		t.Errorf("default channel buffer size should be 30, got %d", config.ChannelBufferSize)
	}
}

func TestRecorderValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{name: "valid default config", mutate: func(c *Config) {}},
		{name: "zero sample rate", mutate: func(c *Config) { c.SampleRate = 0 }, expectError: true},
		{name: "negative sample rate", mutate: func(c *Config) { c.SampleRate = -1 }, expectError: true},
		{name: "zero channels", mutate: func(c *Config) { c.Channels = 0 }, expectError: true},
		{name: "zero buffer size", mutate: func(c *Config) { c.BufferSize = 0 }, expectError: true},
		{name: "zero queue size", mutate: func(c *Config) { c.ChannelBufferSize = 0 }, expectError: true},
		{name: "empty format", mutate: func(c *Config) { c.Format = "" }, expectError: true},
		{name: "odd buffer for s16", mutate: func(c *Config) { c.BufferSize = 16001 }, expectError: true},
		{name: "stereo aligned", mutate: func(c *Config) { c.Channels = 2; c.BufferSize = 8192 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := NewRecorder(config).validateConfig()

			if tt.expectError && err == nil {
				t.Errorf("expected error for config %+v", config)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error for config %+v: %v", config, err)
			}
		})
	}
}

func TestRecorderBuildPwRecordArgs(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected []string
	}{
		{
			name:     "default config",
			config:   DefaultConfig(),
			expected: []string{"--format", "s16", "--rate", "16000", "--channels", "1", "-"},
		},
		{
			name: "with device",
			config: Config{
				SampleRate: 48000,
				Channels:   2,
				Format:     "s16",
				Device:     "alsa_input.usb-mic",
			},
			expected: []string{"--format", "s16", "--rate", "48000", "--channels", "2", "-", "--target", "alsa_input.usb-mic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := NewRecorder(tt.config).buildPwRecordArgs()
			if fmt.Sprint(args) != fmt.Sprint(tt.expected) {
				t.Errorf("args = %v, want %v", args, tt.expected)
			}
		})
	}
}

func TestRecorder_FixedSizeFrames(t *testing.T) {
	config := DefaultConfig()
	config.BufferSize = 1000
	config.ChannelBufferSize = 10
	// 3 full frames plus a trailing partial frame that is discarded
	r := scriptRecorder(config, "head -c 3500 /dev/zero")

	frames, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var got []AudioFrame
	for f := range frames {
		got = append(got, f)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(got))
	}
	for i, f := range got {
		if len(f.Data) != 1000 {
			t.Errorf("frame %d has %d bytes, want 1000", i, len(f.Data))
		}
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if r.IsRecording() {
		t.Error("recorder should not be recording after capture ends")
	}
}

func TestRecorder_ExitWithoutStopIsReported(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"exit before audio", "echo 'device busy' >&2; exit 1"},
		{"exit mid frame", "head -c 1500 /dev/zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.BufferSize = 1000
			r := scriptRecorder(config, tt.script)

			var reported []error
			r.OnError = func(err error) { reported = append(reported, err) }

			frames, err := r.Start(context.Background())
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			for range frames {
			}
			// the queue closes after OnError returns

			if len(reported) != 1 {
				t.Fatalf("OnError called %d times, want 1", len(reported))
			}
			var devErr *DeviceError
			if !errors.As(reported[0], &devErr) {
				t.Errorf("expected *DeviceError, got %T: %v", reported[0], reported[0])
			}
			if got := testutil.ToFloat64(r.metrics.CaptureErrors); got != 1 {
				t.Errorf("capture errors = %v, want 1", got)
			}
			if err := r.Stop(); err != nil {
				t.Errorf("Stop failed: %v", err)
			}
		})
	}
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	config := DefaultConfig()
	config.BufferSize = 100
	config.ChannelBufferSize = 1
	r := scriptRecorder(config, "head -c 1000 /dev/zero")

	frames, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Do not consume until the producer is finished.
	r.wg.Wait()

	count := 0
	for range frames {
		count++
	}
	if count != 1 {
		t.Errorf("expected 1 queued frame, got %d", count)
	}
	if r.Dropped() != 9 {
		t.Errorf("expected 9 dropped frames, got %d", r.Dropped())
	}
	if r.Captured() != 1 {
		t.Errorf("expected 1 captured frame, got %d", r.Captured())
	}
}

func TestRecorder_StopIsIdempotentAndReaps(t *testing.T) {
	config := DefaultConfig()
	r := scriptRecorder(config, "exec cat /dev/zero")
	var reported atomic.Int32
	r.OnError = func(error) { reported.Add(1) }

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop before Start failed: %v", err)
	}

	frames, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}

	done := make(chan struct{})
	go func() {
		_ = r.Stop()
		_ = r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	// drain to the close
	for range frames {
	}
	if n := reported.Load(); n != 0 {
		t.Errorf("Stop must not be reported as a capture error, got %d", n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		t.Error("child process should be released after Stop")
	}
}

func TestRecorder_StartTwice(t *testing.T) {
	r := scriptRecorder(DefaultConfig(), "exec cat /dev/zero")
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	if _, err := r.Start(context.Background()); err == nil {
		t.Error("second Start should fail while recording")
	}
}

func TestRecorder_StartErrorsAreDeviceErrors(t *testing.T) {
	t.Run("preflight failure", func(t *testing.T) {
		r := scriptRecorder(DefaultConfig(), "true")
		r.preflight = func(context.Context) error { return errors.New("no pipewire") }

		_, err := r.Start(context.Background())
		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			t.Fatalf("expected *DeviceError, got %v", err)
		}
		if r.IsRecording() {
			t.Error("recorder should not be recording after failed start")
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		r := NewRecorder(DefaultConfig()).WithMetrics(metrics.NewMetrics(prometheus.NewRegistry()))
		r.preflight = nil
		r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "/nonexistent/pw-record")
		}

		_, err := r.Start(context.Background())
		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			t.Fatalf("expected *DeviceError, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		config := DefaultConfig()
		config.SampleRate = 0
		_, err := scriptRecorder(config, "true").Start(context.Background())
		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			t.Fatalf("expected *DeviceError, got %v", err)
		}
	})
}

func TestDeviceError_Message(t *testing.T) {
	err := &DeviceError{Err: errors.New("busy")}
	if err.Error() != "audio device default: busy" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Error("DeviceError should unwrap")
	}
}
