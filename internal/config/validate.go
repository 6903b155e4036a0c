package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/language"
	"github.com/leonardotrapani/hyprscribe/internal/recognizer"
	"github.com/leonardotrapani/hyprscribe/internal/speaker"
)

func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format == "" {
		return fmt.Errorf("invalid recording.format: empty")
	}

	if err := c.validateTranscription(); err != nil {
		return err
	}

	if c.Session.PollInterval < 0 {
		return fmt.Errorf("invalid session.poll_interval: %v", c.Session.PollInterval)
	}
	if c.Session.ResultBufferSize <= 0 {
		return fmt.Errorf("invalid session.result_buffer_size: %d", c.Session.ResultBufferSize)
	}
	seen := make(map[string]bool, len(c.Session.Speakers))
	for _, name := range c.Session.Speakers {
		if err := speaker.ValidateName(name); err != nil {
			return fmt.Errorf("invalid session.speakers: %w", err)
		}
		if seen[name] {
			return fmt.Errorf("invalid session.speakers: %q listed twice", name)
		}
		seen[name] = true
	}

	switch c.Notifications.Type {
	case "", "desktop", "log", "none":
	default:
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log or none)", c.Notifications.Type)
	}

	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
		}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (must be console or json)", c.Logging.Format)
	}

	if c.Archive.Enabled && c.Archive.Path == "" {
		return fmt.Errorf("archive.path required when archive is enabled")
	}

	return c.validateLLM()
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	if !slices.Contains(recognizer.Engines(), t.Engine) {
		return fmt.Errorf("invalid transcription.engine: %q (must be one of %s)", t.Engine, strings.Join(recognizer.Engines(), ", "))
	}
	switch t.Engine {
	case recognizer.EngineVoskServer:
		if t.ServerURL == "" {
			return fmt.Errorf("transcription.server_url required for vosk-server")
		}
		if !strings.HasPrefix(t.ServerURL, "ws://") && !strings.HasPrefix(t.ServerURL, "wss://") {
			return fmt.Errorf("invalid transcription.server_url: %s (must start with ws:// or wss://)", t.ServerURL)
		}
	case recognizer.EngineWhisperCpp:
		if t.ModelDir == "" {
			return fmt.Errorf("transcription.model_dir required for whisper-cpp (see: hyprscribe model list)")
		}
	}
	if !language.IsValidCode(t.Language) {
		return fmt.Errorf("invalid transcription.language: %q (use an ISO 639-1 code or leave empty)", t.Language)
	}
	if t.PauseThreshold <= 0 {
		return fmt.Errorf("invalid transcription.pause_threshold: %v", t.PauseThreshold)
	}
	if t.FrameTimeout <= 0 {
		return fmt.Errorf("invalid transcription.frame_timeout: %v", t.FrameTimeout)
	}
	if t.StopTimeout <= 0 {
		return fmt.Errorf("invalid transcription.stop_timeout: %v", t.StopTimeout)
	}
	if t.Threads < 0 {
		return fmt.Errorf("invalid transcription.threads: %d", t.Threads)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !c.LLM.Enabled {
		return nil
	}
	switch c.LLM.Provider {
	case "openai", "groq":
	default:
		return fmt.Errorf("invalid llm.provider: %q (must be openai or groq)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model required when llm is enabled")
	}
	if c.resolveLLMAPIKey() == "" {
		return fmt.Errorf("%s API key required: set llm.api_key or %s", c.LLM.Provider, llmKeyEnv(c.LLM.Provider))
	}
	return nil
}

func llmKeyEnv(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

func (c *Config) resolveLLMAPIKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	return os.Getenv(llmKeyEnv(c.LLM.Provider))
}
