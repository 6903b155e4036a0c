// Package notes keeps free-text annotations. A note snapshots the speaker and timestamp
// label at creation time and is never re-validated against the speaker registry.
package notes

import "slices"

// Placeholder is the body given to notes created without text.
const Placeholder = "(edit this note...)"

type Note struct {
	SpeakerName  string
	SpeakerColor string
	Label        string
	Text         string
}

// Store is append-only and owned by the session goroutine.
type Store struct {
	notes []Note
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(speakerName, speakerColor, label, text string) Note {
	n := Note{
		SpeakerName:  speakerName,
		SpeakerColor: speakerColor,
		Label:        label,
		Text:         text,
	}
	s.notes = append(s.notes, n)
	return n
}

// Notes returns a copy in creation order.
func (s *Store) Notes() []Note {
	return slices.Clone(s.notes)
}

func (s *Store) Len() int {
	return len(s.notes)
}
