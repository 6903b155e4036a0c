// Package export projects a session into its JSON export document.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leonardotrapani/hyprscribe/internal/notes"
	"github.com/leonardotrapani/hyprscribe/internal/speaker"
	"github.com/leonardotrapani/hyprscribe/internal/textcodec"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

// TimeLayout is ISO-8601 local time with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000"

type Metadata struct {
	ExportedAt string `json:"exported_at"`
}

type SessionExport struct {
	Metadata   Metadata          `json:"metadata"`
	Speakers   []speaker.Speaker `json:"speakers"`
	Transcript []textcodec.Entry `json:"transcript"`
	Notes      []textcodec.Entry `json:"notes"`
}

// ExportIOError wraps a failure writing the export destination.
type ExportIOError struct {
	Path string
	Err  error
}

func (e *ExportIOError) Error() string {
	return fmt.Sprintf("export to %s: %v", e.Path, e.Err)
}

func (e *ExportIOError) Unwrap() error {
	return e.Err
}

// Build projects the session state. It never returns nil slices.
func Build(speakers []speaker.Speaker, segments []transcript.Segment, ns []notes.Note, now time.Time) SessionExport {
	exp := SessionExport{
		Metadata:   Metadata{ExportedAt: now.Local().Format(TimeLayout)},
		Speakers:   make([]speaker.Speaker, 0, len(speakers)),
		Transcript: make([]textcodec.Entry, 0, len(segments)),
		Notes:      make([]textcodec.Entry, 0, len(ns)),
	}

	exp.Speakers = append(exp.Speakers, speakers...)
	for _, s := range segments {
		exp.Transcript = append(exp.Transcript, textcodec.Entry{
			Timestamp: s.Label(),
			Speaker:   s.SpeakerName,
			Text:      s.Text,
		})
	}
	for _, n := range ns {
		exp.Notes = append(exp.Notes, textcodec.Entry{
			Timestamp: n.Label,
			Speaker:   n.SpeakerName,
			Text:      n.Text,
		})
	}
	return exp
}

// Marshal encodes exp as indented UTF-8 JSON without HTML escaping.
func Marshal(exp SessionExport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return buf.Bytes(), nil
}

// Write marshals exp to path. I/O failures are returned as *ExportIOError.
func Write(path string, exp SessionExport) error {
	data, err := Marshal(exp)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ExportIOError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &ExportIOError{Path: path, Err: err}
	}
	return nil
}

func Unmarshal(data []byte) (SessionExport, error) {
	var exp SessionExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return exp, fmt.Errorf("parse export: %w", err)
	}
	return exp, nil
}

// Read loads an export document from path.
func Read(path string) (SessionExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionExport{}, &ExportIOError{Path: path, Err: err}
	}
	exp, err := Unmarshal(data)
	if err != nil {
		return exp, fmt.Errorf("%s: %w", path, err)
	}
	return exp, nil
}

// DefaultFilename names an export after the time it was taken.
func DefaultFilename(now time.Time) string {
	return "session-" + now.Local().Format("2006-01-02_15-04-05") + ".json"
}
