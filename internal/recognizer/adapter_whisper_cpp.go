package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/language"
	"github.com/leonardotrapani/hyprscribe/internal/logging"
	"github.com/leonardotrapani/hyprscribe/internal/segmenter"
)

// DefaultSilenceRMS is the amplitude below which a chunk counts as silence.
const DefaultSilenceRMS = 500.0

// SpeakingHint is the partial text shown while an utterance is being captured.
const SpeakingHint = "..."

type WhisperCppConfig struct {
	ModelPath      string
	Language       string
	Threads        int
	SampleRate     int
	PauseThreshold float64
	SilenceRMS     float64
}

type transcribeFunc func(ctx context.Context, pcm []byte) (string, error)

// WhisperCppAdapter cuts the stream into utterances at pauses and runs whisper-cli on
// each one. Word offsets are interpolated across the voiced span of the utterance.
type WhisperCppAdapter struct {
	config     WhisperCppConfig
	transcribe transcribeFunc
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	samples   int64
	speaking  bool
	utterance []byte
	uttStart  float64
	lastVoice float64
}

var _ Adapter = (*WhisperCppAdapter)(nil)

func NewWhisperCppAdapter(config WhisperCppConfig) *WhisperCppAdapter {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.PauseThreshold <= 0 {
		config.PauseThreshold = segmenter.DefaultPauseThreshold
	}
	if config.SilenceRMS <= 0 {
		config.SilenceRMS = DefaultSilenceRMS
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &WhisperCppAdapter{
		config: config,
		logger: logging.WithComponent("whisper-cpp"),
		ctx:    ctx,
		cancel: cancel,
	}
	a.transcribe = a.runWhisperCli
	return a
}

func (a *WhisperCppAdapter) seconds(samples int64) float64 {
	return float64(samples) / float64(a.config.SampleRate)
}

func (a *WhisperCppAdapter) Feed(chunk []byte) (Result, error) {
	chunkStart := a.seconds(a.samples)
	a.samples += int64(len(chunk) / 2)
	chunkEnd := a.seconds(a.samples)

	if rms(chunk) >= a.config.SilenceRMS {
		if !a.speaking {
			a.speaking = true
			a.uttStart = chunkStart
			a.utterance = a.utterance[:0]
		}
		a.utterance = append(a.utterance, chunk...)
		a.lastVoice = chunkEnd
		return PartialResult(SpeakingHint), nil
	}

	if !a.speaking {
		return Result{}, nil
	}

	a.utterance = append(a.utterance, chunk...)
	if segmenter.IsBoundary(a.lastVoice, chunkEnd, a.config.PauseThreshold) {
		return a.finish()
	}
	return PartialResult(SpeakingHint), nil
}

func (a *WhisperCppAdapter) Flush() (Result, error) {
	if !a.speaking {
		return Result{}, nil
	}
	return a.finish()
}

func (a *WhisperCppAdapter) Close() error {
	a.cancel()
	return nil
}

func (a *WhisperCppAdapter) finish() (Result, error) {
	pcm := a.utterance
	start, end := a.uttStart, a.lastVoice
	a.speaking = false
	a.utterance = nil

	text, err := a.transcribe(a.ctx, pcm)
	if err != nil {
		return Result{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, nil
	}
	return FinalResult(text, spreadWords(text, start, end)), nil
}

// spreadWords assigns each word an equal share of [start, end].
func spreadWords(text string, start, end float64) []Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	step := (end - start) / float64(len(fields))
	words := make([]Word, len(fields))
	for i, f := range fields {
		words[i] = Word{Word: f, Start: start + step*float64(i), End: start + step*float64(i+1)}
	}
	words[len(words)-1].End = end
	return words
}

func (a *WhisperCppAdapter) runWhisperCli(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}
	if _, err := os.Stat(a.config.ModelPath); err != nil {
		return "", fmt.Errorf("model file not found: %s", a.config.ModelPath)
	}
	whisperPath, err := exec.LookPath("whisper-cli")
	if err != nil {
		return "", fmt.Errorf("whisper-cli not found: install whisper.cpp first")
	}

	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("hyprscribe-%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(tmpFile, pcmToWAV(pcm, a.config.SampleRate), 0o600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	defer os.Remove(tmpFile)

	args := []string{
		"-m", a.config.ModelPath,
		"-l", language.WhisperArg(a.config.Language),
		"-nt",
		"-np",
		"-f", tmpFile,
	}
	if a.config.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.config.Threads))
	}

	cmd := exec.CommandContext(ctx, whisperPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		a.logger.Error().Err(err).Str("stderr", stderr.String()).Msg("whisper-cli failed")
		return "", fmt.Errorf("whisper-cli failed: %w", err)
	}

	text := strings.TrimSpace(stdout.String())
	a.logger.Debug().
		Int("bytes", len(pcm)).
		Dur("took", time.Since(start)).
		Str("text", text).
		Msg("utterance transcribed")
	return text, nil
}
