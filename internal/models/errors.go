package models

import "fmt"

// ModelNotFoundError reports a model directory that is missing, empty or unusable.
type ModelNotFoundError struct {
	Path   string
	Reason string
}

func (e *ModelNotFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("model not found: %s", e.Path)
	}
	return fmt.Sprintf("model not found: %s (%s)", e.Path, e.Reason)
}
