package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func createTestConfig() *Config {
	c := DefaultConfig()
	c.Session.Speakers = []string{"Alice", "Bob"}
	c.Notifications.Type = "log"
	return c
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"sample rate", func(c *Config) { c.Recording.SampleRate = 0 }, "recording.sample_rate"},
		{"channels", func(c *Config) { c.Recording.Channels = 0 }, "recording.channels"},
		{"buffer size", func(c *Config) { c.Recording.BufferSize = -1 }, "recording.buffer_size"},
		{"queue size", func(c *Config) { c.Recording.ChannelBufferSize = 0 }, "recording.channel_buffer_size"},
		{"format", func(c *Config) { c.Recording.Format = "" }, "recording.format"},
		{"engine", func(c *Config) { c.Transcription.Engine = "kaldi" }, "transcription.engine"},
		{"server url missing", func(c *Config) { c.Transcription.ServerURL = "" }, "server_url"},
		{"server url scheme", func(c *Config) { c.Transcription.ServerURL = "http://localhost:2700" }, "server_url"},
		{"whisper without model", func(c *Config) { c.Transcription.Engine = "whisper-cpp" }, "model_dir"},
		{"whisper with model", func(c *Config) {
			c.Transcription.Engine = "whisper-cpp"
			c.Transcription.ModelDir = "whisper-base.en"
		}, ""},
		{"language", func(c *Config) { c.Transcription.Language = "english" }, "transcription.language"},
		{"language code", func(c *Config) { c.Transcription.Language = "de" }, ""},
		{"pause threshold", func(c *Config) { c.Transcription.PauseThreshold = 0 }, "pause_threshold"},
		{"frame timeout", func(c *Config) { c.Transcription.FrameTimeout = 0 }, "frame_timeout"},
		{"stop timeout", func(c *Config) { c.Transcription.StopTimeout = 0 }, "stop_timeout"},
		{"threads", func(c *Config) { c.Transcription.Threads = -2 }, "threads"},
		{"poll interval zero ok", func(c *Config) { c.Session.PollInterval = 0 }, ""},
		{"poll interval negative", func(c *Config) { c.Session.PollInterval = -time.Second }, "poll_interval"},
		{"result buffer", func(c *Config) { c.Session.ResultBufferSize = 0 }, "result_buffer_size"},
		{"duplicate speaker", func(c *Config) { c.Session.Speakers = []string{"A", "A"} }, "listed twice"},
		{"blank speaker", func(c *Config) { c.Session.Speakers = []string{" "} }, "name is empty"},
		{"speaker with colon", func(c *Config) { c.Session.Speakers = []string{"Dr: Who"} }, "invalid speaker name"},
		{"notification type", func(c *Config) { c.Notifications.Type = "pager" }, "notifications.type"},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"archive without path", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Path = ""
		}, "archive.path"},
		{"llm provider", func(c *Config) {
			c.LLM.Enabled = true
			c.LLM.Provider = "mystery"
		}, "llm.provider"},
		{"llm key in config", func(c *Config) {
			c.LLM.Enabled = true
			c.LLM.APIKey = "sk-test"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createTestConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_LLMKeyFromEnv(t *testing.T) {
	c := createTestConfig()
	c.LLM.Enabled = true
	c.LLM.Provider = "groq"

	t.Setenv("GROQ_API_KEY", "")
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}

	t.Setenv("GROQ_API_KEY", "gsk-test")
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if c.ToLLMConfig().APIKey != "gsk-test" {
		t.Error("API key should come from the environment")
	}
}

func TestSaveAndLoadFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyprscribe", "config.toml")
	original := createTestConfig()
	original.Transcription.Engine = "whisper-cpp"
	original.Transcription.ModelDir = "/models/whisper-base"
	original.Transcription.Threads = 3
	original.Transcription.PauseThreshold = 0.75
	original.Session.PollInterval = 0
	original.Metrics.Listen = "127.0.0.1:9464"
	original.LLM.Prompt = `Summarize "this"`

	if err := SaveFile(path, original); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if loaded.Transcription != original.Transcription {
		t.Errorf("transcription = %+v, want %+v", loaded.Transcription, original.Transcription)
	}
	if loaded.Session.PollInterval != 0 || strings.Join(loaded.Session.Speakers, ",") != "Alice,Bob" {
		t.Errorf("session = %+v", loaded.Session)
	}
	if loaded.Metrics.Listen != "127.0.0.1:9464" || loaded.LLM.Prompt != `Summarize "this"` {
		t.Errorf("metrics/llm = %+v %+v", loaded.Metrics, loaded.LLM)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("round-tripped config invalid: %v", err)
	}
}

func TestLoadFile_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[transcription]
engine = "whisper-cpp"
model_dir = "whisper-tiny"
threads = 2

[session]
poll_interval = "250ms"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if c.Transcription.Engine != "whisper-cpp" || c.Transcription.Threads != 2 {
		t.Errorf("transcription = %+v", c.Transcription)
	}
	if c.Session.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v", c.Session.PollInterval)
	}
	if c.Recording.SampleRate != 16000 || c.Transcription.StopTimeout != 5*time.Second {
		t.Error("omitted keys should keep defaults")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("[recording\nsample_rate = "), 0600)
	if _, err := LoadFile(bad); err == nil {
		t.Error("invalid TOML should fail")
	}
}

func TestLoadOrCreate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	c, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("created config invalid: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "hyprscribe", "config.toml")); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

func TestThreadsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	c := DefaultConfig()
	c.Transcription.Threads = 0
	if err := SaveFile(path, c); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := runtime.NumCPU() - 1
	if want < 1 {
		want = 1
	}
	if loaded.Transcription.Threads != want {
		t.Errorf("threads = %d, want %d", loaded.Transcription.Threads, want)
	}
}

func TestConversionMethods(t *testing.T) {
	c := createTestConfig()
	c.Transcription.ModelDir = "whisper-base"
	c.Transcription.ModelsDir = "/srv/models"

	rec := c.ToRecordingConfig()
	if rec.SampleRate != 16000 || rec.BufferSize != 16000 || rec.ChannelBufferSize != 30 {
		t.Errorf("recording = %+v", rec)
	}

	eng := c.ToEngineConfig()
	if eng.ModelDir != "/srv/models/whisper-base" || eng.SampleRate != 16000 || eng.StopTimeout != 5*time.Second {
		t.Errorf("engine = %+v", eng)
	}

	c.Transcription.ModelDir = "/abs/vosk"
	if got := c.ResolveModelDir(); got != "/abs/vosk" {
		t.Errorf("absolute model dir = %s", got)
	}

	sess := c.ToSessionConfig()
	if sess.PollInterval != 100*time.Millisecond || sess.ResultBufferSize != 64 || sess.Engine.Engine != "vosk-server" {
		t.Errorf("session = %+v", sess)
	}

	lc := c.ToLoggingConfig()
	if lc.Level != "info" || lc.Format != "console" {
		t.Errorf("logging = %+v", lc)
	}
}

func TestManager_ReloadAndOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveFile(path, createTestConfig()); err != nil {
		t.Fatal(err)
	}

	m, err := NewManagerAt(path)
	if err != nil {
		t.Fatalf("NewManagerAt failed: %v", err)
	}

	var mu sync.Mutex
	var seen []*Config
	m.OnChange(func(c *Config) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	})

	updated := createTestConfig()
	updated.Logging.Level = "debug"
	if err := SaveFile(path, updated); err != nil {
		t.Fatal(err)
	}
	if !m.Reload() {
		t.Fatal("Reload should succeed")
	}
	if m.GetConfig().Logging.Level != "debug" {
		t.Error("config not updated")
	}

	invalid := createTestConfig()
	invalid.Recording.SampleRate = 0
	if err := SaveFile(path, invalid); err != nil {
		t.Fatal(err)
	}
	if m.Reload() {
		t.Error("invalid config should be rejected")
	}
	if m.GetConfig().Recording.SampleRate != 16000 {
		t.Error("previous config should be kept")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Errorf("OnChange called %d times, want 1", len(seen))
	}
}

func TestManager_GetConfigReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	SaveFile(path, createTestConfig())
	m, err := NewManagerAt(path)
	if err != nil {
		t.Fatal(err)
	}

	c := m.GetConfig()
	c.Session.Speakers[0] = "Mallory"
	c.Recording.SampleRate = 1
	if got := m.GetConfig(); got.Session.Speakers[0] != "Alice" || got.Recording.SampleRate != 16000 {
		t.Error("GetConfig should not expose internal state")
	}
}

func TestManager_WatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	SaveFile(path, createTestConfig())
	m, err := NewManagerAt(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	defer m.Stop()

	updated := createTestConfig()
	updated.Metrics.Listen = "127.0.0.1:9999"
	if err := SaveFile(path, updated); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.GetConfig().Metrics.Listen == "127.0.0.1:9999" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("config change not picked up by watcher")
}
