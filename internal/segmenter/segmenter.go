// Package segmenter decides where pauses between recognized words end a sentence.
package segmenter

// DefaultPauseThreshold is the silence, in seconds, treated as a sentence break.
const DefaultPauseThreshold = 1.0

// WordTiming is a recognized word with start and end offsets in seconds,
// relative to the start of the audio stream.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// IsBoundary reports whether the gap between prevEnd and nextStart is at least threshold.
// Negative gaps (overlapping words) are allowed.
func IsBoundary(prevEnd, nextStart, threshold float64) bool {
	return nextStart-prevEnd >= threshold
}

// Segmenter applies IsBoundary with a fixed pause threshold.
type Segmenter struct {
	PauseThreshold float64
}

func New(pauseThreshold float64) Segmenter {
	return Segmenter{PauseThreshold: pauseThreshold}
}

func (s Segmenter) IsBoundary(prevEnd, nextStart float64) bool {
	return IsBoundary(prevEnd, nextStart, s.PauseThreshold)
}

// Split cuts words into sentences at every boundary. The input slice is not modified.
func (s Segmenter) Split(words []WordTiming) [][]WordTiming {
	if len(words) == 0 {
		return nil
	}

	var sentences [][]WordTiming
	current := []WordTiming{words[0]}
	for i := 1; i < len(words); i++ {
		if s.IsBoundary(words[i-1].End, words[i].Start) {
			sentences = append(sentences, current)
			current = nil
		}
		current = append(current, words[i])
	}
	return append(sentences, current)
}
