// Package speaker keeps the ordered set of session speakers, their display colors and
// which one newly finalized segments are attributed to.
package speaker

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Palette is assigned to speakers in registration order, wrapping after the last entry.
var Palette = [8]string{
	"#1f77b4", // blue
	"#ff7f0e", // orange
	"#2ca02c", // green
	"#d62728", // red
	"#9467bd", // purple
	"#8c564b", // brown
	"#e377c2", // pink
	"#7f7f7f", // gray
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Speaker struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type ChangeKind string

const (
	Added     ChangeKind = "added"
	Activated ChangeKind = "activated"
	Renamed   ChangeKind = "renamed"
	Recolored ChangeKind = "recolored"
)

// Change describes a registry update that affects the active speaker.
// OldName is set for Renamed only.
type Change struct {
	Kind    ChangeKind
	Name    string
	OldName string
	Color   string
}

// Listener is called synchronously after the registry has been updated.
type Listener func(Change)

// Registry is not safe for concurrent use; it is owned by a single session goroutine.
type Registry struct {
	speakers  []Speaker
	active    string
	assigned  int
	listeners []Listener
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe registers l for every subsequent Change.
func (r *Registry) Subscribe(l Listener) {
	r.listeners = append(r.listeners, l)
}

// ValidateName rejects names that do not survive the "[ts] name: text" line form: the
// name ends at the first colon, a line break ends the line and surrounding spaces are
// trimmed when it is read back.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyName
	}
	if trimmed != name || strings.ContainsAny(name, ":\r\n") {
		return fmt.Errorf("%w: %q (no colons, line breaks or surrounding spaces)", ErrInvalidName, name)
	}
	return nil
}

// Add registers name with the next palette color and makes it the active speaker.
func (r *Registry) Add(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if r.index(name) >= 0 {
		return "", &DuplicateSpeakerError{Name: name}
	}

	color := Palette[r.assigned%len(Palette)]
	r.assigned++
	r.speakers = append(r.speakers, Speaker{Name: name, Color: color})
	r.active = name

	r.notify(Change{Kind: Added, Name: name, Color: color})
	return color, nil
}

// Rename changes a speaker's name and moves it to the end of the display order.
// An empty newName keeps the old one. Renaming onto another registered name fails.
func (r *Registry) Rename(oldName, newName string) error {
	i := r.index(oldName)
	if i < 0 {
		return &UnknownSpeakerError{Name: oldName}
	}
	if newName == "" {
		newName = oldName
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if newName != oldName && r.index(newName) >= 0 {
		return &DuplicateSpeakerError{Name: newName}
	}

	s := r.speakers[i]
	s.Name = newName
	r.speakers = append(slices.Delete(r.speakers, i, i+1), s)

	if r.active == oldName {
		r.active = newName
		r.notify(Change{Kind: Renamed, Name: newName, OldName: oldName, Color: s.Color})
	}
	return nil
}

// Recolor sets a speaker's color; color must be "#rrggbb".
func (r *Registry) Recolor(name, color string) error {
	i := r.index(name)
	if i < 0 {
		return &UnknownSpeakerError{Name: name}
	}
	if !colorPattern.MatchString(color) {
		return fmt.Errorf("%w: %q (expected #rrggbb)", ErrInvalidColor, color)
	}

	r.speakers[i].Color = color
	if r.active == name {
		r.notify(Change{Kind: Recolored, Name: name, Color: color})
	}
	return nil
}

func (r *Registry) SetActive(name string) error {
	i := r.index(name)
	if i < 0 {
		return &UnknownSpeakerError{Name: name}
	}
	r.active = name
	r.notify(Change{Kind: Activated, Name: name, Color: r.speakers[i].Color})
	return nil
}

// Active returns the active speaker, if any.
func (r *Registry) Active() (Speaker, bool) {
	if r.active == "" {
		return Speaker{}, false
	}
	return r.Get(r.active)
}

func (r *Registry) Get(name string) (Speaker, bool) {
	i := r.index(name)
	if i < 0 {
		return Speaker{}, false
	}
	return r.speakers[i], true
}

// All returns a copy of the speakers in display order.
func (r *Registry) All() []Speaker {
	return slices.Clone(r.speakers)
}

func (r *Registry) Len() int {
	return len(r.speakers)
}

func (r *Registry) index(name string) int {
	return slices.IndexFunc(r.speakers, func(s Speaker) bool { return s.Name == name })
}

func (r *Registry) notify(c Change) {
	for _, l := range r.listeners {
		l(c)
	}
}
