package recognizer

import (
	"strings"

	"github.com/leonardotrapani/hyprscribe/internal/segmenter"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

// Word is one recognized word with offsets in seconds from the start of the stream.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf,omitempty"`
}

// Result is a recognition result in the Vosk wire shape. Exactly one of Partial or
// Text is meaningful: a result with Text (or words) is final.
type Result struct {
	Partial string `json:"partial,omitempty"`
	Text    string `json:"text,omitempty"`
	Words   []Word `json:"result,omitempty"`
	final   bool
}

// PartialResult builds an in-progress hypothesis.
func PartialResult(text string) Result {
	return Result{Partial: text}
}

// FinalResult builds a committed utterance.
func FinalResult(text string, words []Word) Result {
	return Result{Text: text, Words: words, final: true}
}

// IsFinal reports whether r commits text.
func (r Result) IsFinal() bool {
	return r.final || r.Text != "" || len(r.Words) > 0
}

// Event converts r to a transcript event. ok is false for empty partials and empty finals.
func (r Result) Event() (transcript.Event, bool) {
	if !r.IsFinal() {
		text := strings.TrimSpace(r.Partial)
		if text == "" {
			return transcript.Event{}, false
		}
		return transcript.NewPartial(text), true
	}

	text := strings.TrimSpace(r.Text)
	if text == "" && len(r.Words) > 0 {
		parts := make([]string, len(r.Words))
		for i, w := range r.Words {
			parts[i] = w.Word
		}
		text = strings.Join(parts, " ")
	}
	if text == "" {
		return transcript.Event{}, false
	}
	if len(r.Words) == 0 {
		return transcript.NewFinal(text, nil, nil), true
	}
	return transcript.NewTimedFinal(text, r.Words[0].Start, r.Words[len(r.Words)-1].End), true
}

// Events is Event with a timed final cut into one final per sentence wherever seg
// finds a pause between words.
func (r Result) Events(seg segmenter.Segmenter) []transcript.Event {
	if r.IsFinal() && len(r.Words) > 1 {
		timings := make([]segmenter.WordTiming, len(r.Words))
		for i, w := range r.Words {
			timings[i] = segmenter.WordTiming{Word: w.Word, Start: w.Start, End: w.End}
		}
		if sentences := seg.Split(timings); len(sentences) > 1 {
			events := make([]transcript.Event, 0, len(sentences))
			for _, words := range sentences {
				parts := make([]string, len(words))
				for i, w := range words {
					parts[i] = w.Word
				}
				events = append(events, transcript.NewTimedFinal(strings.Join(parts, " "), words[0].Start, words[len(words)-1].End))
			}
			return events
		}
	}

	ev, ok := r.Event()
	if !ok {
		return nil
	}
	return []transcript.Event{ev}
}
