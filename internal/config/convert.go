package config

import (
	"path/filepath"

	"github.com/leonardotrapani/hyprscribe/internal/llm"
	"github.com/leonardotrapani/hyprscribe/internal/logging"
	"github.com/leonardotrapani/hyprscribe/internal/models"
	"github.com/leonardotrapani/hyprscribe/internal/recognizer"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/session"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToEngineConfig() recognizer.Config {
	return recognizer.Config{
		Engine:         c.Transcription.Engine,
		ModelDir:       c.ResolveModelDir(),
		ServerURL:      c.Transcription.ServerURL,
		Language:       c.Transcription.Language,
		Threads:        c.Transcription.Threads,
		SampleRate:     c.Recording.SampleRate,
		PauseThreshold: c.Transcription.PauseThreshold,
		FrameTimeout:   c.Transcription.FrameTimeout,
		StopTimeout:    c.Transcription.StopTimeout,
	}
}

// ResolveModelDir expands ~ and resolves bare names against models_dir.
func (c *Config) ResolveModelDir() string {
	dir := c.Transcription.ModelDir
	if dir == "" {
		return ""
	}
	dir = models.ExpandPath(dir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.ResolveModelsDir(), dir)
}

func (c *Config) ResolveModelsDir() string {
	if c.Transcription.ModelsDir == "" {
		if root, err := models.DefaultRoot(); err == nil {
			return root
		}
	}
	return models.ExpandPath(c.Transcription.ModelsDir)
}

func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		PollInterval:     c.Session.PollInterval,
		ResultBufferSize: c.Session.ResultBufferSize,
		Recording:        c.ToRecordingConfig(),
		Engine:           c.ToEngineConfig(),
	}
}

func (c *Config) ToLLMConfig() llm.Config {
	return llm.Config{
		Provider: c.LLM.Provider,
		APIKey:   c.resolveLLMAPIKey(),
		Model:    c.LLM.Model,
		Prompt:   c.LLM.Prompt,
	}
}

func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
	}
}

func (c *Config) ExportDir() string {
	return models.ExpandPath(c.Session.ExportDir)
}

func (c *Config) ArchivePath() string {
	return models.ExpandPath(c.Archive.Path)
}
