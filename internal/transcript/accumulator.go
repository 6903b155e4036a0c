// Package transcript turns recognition events into speaker-attributed, wall-clock
// timestamped segments.
package transcript

import (
	"errors"
	"slices"

	"github.com/leonardotrapani/hyprscribe/internal/speaker"
)

var ErrAlreadyStarted = errors.New("transcript: already started, stop first")

// Attribution used when no speaker is active.
const (
	UnknownSpeaker = "Unknown"
	UnknownColor   = "#000000"
)

// Segment is a finalized piece of transcript. Wall times are unix seconds.
type Segment struct {
	SpeakerName  string
	SpeakerColor string
	StartWall    *float64
	EndWall      *float64
	Text         string
}

// Label is the segment's timestamp range as shown in the transcript.
func (s Segment) Label() string {
	return FormatRange(s.StartWall, s.EndWall)
}

// SpeakerSource provides the speaker that finalized segments are attributed to.
type SpeakerSource interface {
	Active() (speaker.Speaker, bool)
}

// Accumulator is not safe for concurrent use; it is owned by the session goroutine.
type Accumulator struct {
	speakers    SpeakerSource
	segments    []Segment
	partial     string
	streamStart *float64
}

func NewAccumulator(speakers SpeakerSource) *Accumulator {
	return &Accumulator{speakers: speakers}
}

// Start records the wall-clock time that engine offsets are relative to.
func (a *Accumulator) Start(wall float64) error {
	if a.streamStart != nil {
		return ErrAlreadyStarted
	}
	a.streamStart = &wall
	return nil
}

func (a *Accumulator) Stop() {
	a.streamStart = nil
}

func (a *Accumulator) Started() bool {
	return a.streamStart != nil
}

// OnEvent applies ev. It returns the appended segment, if any.
func (a *Accumulator) OnEvent(ev Event) (Segment, bool) {
	switch ev.Kind {
	case Partial:
		a.partial = ev.Text
	case Final:
		if ev.Text == "" {
			return Segment{}, false
		}

		seg := Segment{
			SpeakerName:  UnknownSpeaker,
			SpeakerColor: UnknownColor,
			Text:         ev.Text,
		}
		if s, ok := a.speakers.Active(); ok {
			seg.SpeakerName = s.Name
			seg.SpeakerColor = s.Color
		}
		if a.streamStart != nil && ev.Start != nil && ev.End != nil {
			start := *a.streamStart + *ev.Start
			end := *a.streamStart + *ev.End
			seg.StartWall = &start
			seg.EndWall = &end
		}

		a.segments = append(a.segments, seg)
		a.partial = ""
		return seg, true
	}
	return Segment{}, false
}

// Partial returns the current in-progress text.
func (a *Accumulator) Partial() string {
	return a.partial
}

// Segments returns a copy of the finalized segments in arrival order.
func (a *Accumulator) Segments() []Segment {
	return slices.Clone(a.segments)
}

// Segment returns the i-th segment.
func (a *Accumulator) Segment(i int) (Segment, bool) {
	if i < 0 || i >= len(a.segments) {
		return Segment{}, false
	}
	return a.segments[i], true
}

func (a *Accumulator) Len() int {
	return len(a.segments)
}

// LastLabel is the timestamp label of the most recent segment, or UnknownLabel.
func (a *Accumulator) LastLabel() string {
	if len(a.segments) == 0 {
		return UnknownLabel
	}
	return a.segments[len(a.segments)-1].Label()
}
