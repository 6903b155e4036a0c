package recognizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/leonardotrapani/hyprscribe/internal/models"
	"github.com/leonardotrapani/hyprscribe/internal/segmenter"
)

const (
	EngineVoskServer = "vosk-server"
	EngineWhisperCpp = "whisper-cpp"
)

// Adapter is a streaming recognizer. Feed is called once per audio chunk, Flush once at
// end of stream, Close once afterwards.
type Adapter interface {
	Feed(chunk []byte) (Result, error)
	Flush() (Result, error)
	Close() error
}

// Engines lists the supported engine names.
func Engines() []string {
	return []string{EngineVoskServer, EngineWhisperCpp}
}

// NewAdapter builds the adapter selected by cfg.Engine.
func NewAdapter(ctx context.Context, cfg Config) (Adapter, error) {
	switch cfg.Engine {
	case EngineVoskServer:
		if cfg.ModelDir != "" {
			if err := models.CheckModelDir(cfg.ModelDir); err != nil {
				return nil, err
			}
		}
		return DialVoskServer(ctx, cfg.ServerURL, cfg.SampleRate)
	case EngineWhisperCpp:
		modelPath, err := models.FindWhisperModel(cfg.ModelDir)
		if err != nil {
			return nil, err
		}
		threshold := cfg.PauseThreshold
		if threshold <= 0 {
			threshold = segmenter.DefaultPauseThreshold
		}
		return NewWhisperCppAdapter(WhisperCppConfig{
			ModelPath:      modelPath,
			Language:       cfg.Language,
			Threads:        cfg.Threads,
			SampleRate:     cfg.SampleRate,
			PauseThreshold: threshold,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (supported: %s)", cfg.Engine, strings.Join(Engines(), ", "))
	}
}
