package speaker

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSpeaker = errors.New("duplicate speaker")
	ErrUnknownSpeaker   = errors.New("unknown speaker")
	ErrEmptyName        = errors.New("speaker name is empty")
	ErrInvalidName      = errors.New("invalid speaker name")
	ErrInvalidColor     = errors.New("invalid speaker color")
)

// DuplicateSpeakerError is returned when a name is already registered.
type DuplicateSpeakerError struct {
	Name string
}

func (e *DuplicateSpeakerError) Error() string {
	return fmt.Sprintf("a speaker named %q already exists", e.Name)
}

func (e *DuplicateSpeakerError) Is(target error) bool {
	return target == ErrDuplicateSpeaker
}

// UnknownSpeakerError is returned when a name is not registered.
type UnknownSpeakerError struct {
	Name string
}

func (e *UnknownSpeakerError) Error() string {
	return fmt.Sprintf("no speaker named %q", e.Name)
}

func (e *UnknownSpeakerError) Is(target error) bool {
	return target == ErrUnknownSpeaker
}
