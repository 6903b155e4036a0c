// Package notify tells the user about recording state and speaker changes.
package notify

import (
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/logging"
)

const appName = "Hyprscribe"

type Notifier interface {
	RecordingChanged(on bool)
	SpeakerChanged(name, color string)
	Error(msg string)
}

// New returns the notifier for a [notifications] type; unknown types get Nop.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return NewLog()
	default:
		return Nop{}
	}
}

func recordingMessage(on bool) string {
	if on {
		return "Recording Started"
	}
	return "Recording Stopped"
}

func speakerMessage(name string) string {
	return fmt.Sprintf("Now speaking: %s", name)
}

var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

type Desktop struct{}

func (Desktop) send(args ...string) {
	if err := runCommand("notify-send", append([]string{"-a", appName}, args...)...); err != nil {
		logger := logging.WithComponent("notify")
		logger.Debug().Err(err).Msg("failed to send notification")
	}
}

func (d Desktop) RecordingChanged(on bool) {
	d.send(fmt.Sprintf("%s: %s", appName, recordingMessage(on)))
}

func (d Desktop) SpeakerChanged(name, color string) {
	d.send("-t", "1500", appName, speakerMessage(name))
}

func (d Desktop) Error(msg string) {
	d.send("-u", "critical", appName+" Error", msg)
}

type Log struct {
	logger zerolog.Logger
}

func NewLog() Log {
	return Log{logger: logging.WithComponent("notify")}
}

func (l Log) RecordingChanged(on bool) {
	l.logger.Info().Bool("recording", on).Msg(recordingMessage(on))
}

func (l Log) SpeakerChanged(name, color string) {
	l.logger.Info().Str("speaker", name).Str("color", color).Msg(speakerMessage(name))
}

func (l Log) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// Nop is a Notifier that does absolutely nothing.
type Nop struct{}

func (Nop) RecordingChanged(bool)         {}
func (Nop) SpeakerChanged(string, string) {}
func (Nop) Error(string)                  {}
