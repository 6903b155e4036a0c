package config

import "time"

type Config struct {
	Recording     RecordingConfig     `toml:"recording"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Session       SessionConfig       `toml:"session"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
	Metrics       MetricsConfig       `toml:"metrics"`
	Archive       ArchiveConfig       `toml:"archive"`
	LLM           LLMConfig           `toml:"llm"`
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type TranscriptionConfig struct {
	Engine         string        `toml:"engine"`    // "vosk-server" or "whisper-cpp"
	ModelDir       string        `toml:"model_dir"` // absolute, ~/..., or a name under models_dir
	ModelsDir      string        `toml:"models_dir"`
	ServerURL      string        `toml:"server_url"`
	Language       string        `toml:"language"`
	Threads        int           `toml:"threads"` // 0 = auto: NumCPU-1
	PauseThreshold float64       `toml:"pause_threshold"`
	FrameTimeout   time.Duration `toml:"frame_timeout"`
	StopTimeout    time.Duration `toml:"stop_timeout"`
}

type SessionConfig struct {
	PollInterval     time.Duration `toml:"poll_interval"` // 0 = apply results immediately
	ResultBufferSize int           `toml:"result_buffer_size"`
	Speakers         []string      `toml:"speakers"` // registered when the daemon starts
	ExportDir        string        `toml:"export_dir"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

type MetricsConfig struct {
	Listen string `toml:"listen"` // empty disables the endpoint
}

type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LLMConfig configures optional export summaries.
type LLMConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"` // "openai" or "groq"
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	Prompt   string `toml:"prompt"`
}
