package session

import (
	"github.com/leonardotrapani/hyprscribe/internal/notes"
	"github.com/leonardotrapani/hyprscribe/internal/speaker"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

type UpdateKind string

const (
	UpdatePartial   UpdateKind = "partial"
	UpdateSegment   UpdateKind = "segment"
	UpdateNote      UpdateKind = "note"
	UpdateSpeaker   UpdateKind = "speaker"
	UpdateRecording UpdateKind = "recording"
	UpdateError     UpdateKind = "error"
)

// Update describes one change for live views. Only the fields matching Kind are set.
type Update struct {
	Kind      UpdateKind
	Partial   string
	Segment   transcript.Segment
	Line      int
	Note      notes.Note
	Speaker   speaker.Change
	Recording bool
	Err       error
}

// Subscribe registers fn for all later updates. fn runs on the session goroutine
// (or the capture and recognition goroutines for UpdateError) and must not call
// back into the Session.
func (s *Session) Subscribe(fn func(Update)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Session) publish(u Update) {
	s.subMu.Lock()
	subs := make([]func(Update), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(u)
	}
}
