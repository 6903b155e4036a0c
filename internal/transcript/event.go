package transcript

type Kind string

const (
	Partial Kind = "partial"
	Final   Kind = "final"
)

// Event is a recognition result. Start and End are seconds relative to the start of
// capture and are nil when the engine had no word timing.
type Event struct {
	Kind  Kind
	Text  string
	Start *float64
	End   *float64
}

func NewPartial(text string) Event {
	return Event{Kind: Partial, Text: text}
}

func NewFinal(text string, start, end *float64) Event {
	return Event{Kind: Final, Text: text, Start: start, End: end}
}

// NewTimedFinal is NewFinal with both offsets known.
func NewTimedFinal(text string, start, end float64) Event {
	return NewFinal(text, &start, &end)
}
