package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        16000,
			Device:            "",
			ChannelBufferSize: 30,
		},
		Transcription: TranscriptionConfig{
			Engine:         "vosk-server",
			ModelDir:       "",
			ModelsDir:      "~/.local/share/hyprscribe/models",
			ServerURL:      "ws://localhost:2700",
			Language:       "",
			Threads:        0,
			PauseThreshold: 1.0,
			FrameTimeout:   100 * time.Millisecond,
			StopTimeout:    5 * time.Second,
		},
		Session: SessionConfig{
			PollInterval:     100 * time.Millisecond,
			ResultBufferSize: 64,
			Speakers:         nil,
			ExportDir:        "~/Documents/hyprscribe",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Listen: "",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    "~/.local/share/hyprscribe/archive.db",
		},
		LLM: LLMConfig{
			Enabled:  false,
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
	}
}
