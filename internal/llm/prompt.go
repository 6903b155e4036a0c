package llm

import (
	"strings"

	"github.com/leonardotrapani/hyprscribe/internal/export"
	"github.com/leonardotrapani/hyprscribe/internal/textcodec"
)

const defaultInstructions = `You summarize transcripts of live conversations.
Write markdown with these sections:
## Summary
A short paragraph of what was discussed.
## Key points
Bullet points, attributing statements to speakers by name.
## Action items
Bullet points of follow-ups, or "None" if there are none.
Use only information present in the transcript and notes.`

func BuildSystemPrompt(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return defaultInstructions
}

// BuildUserPrompt renders the session in the same line format the transcript view uses.
func BuildUserPrompt(exp export.SessionExport) string {
	var b strings.Builder

	if len(exp.Speakers) > 0 {
		names := make([]string, len(exp.Speakers))
		for i, s := range exp.Speakers {
			names[i] = s.Name
		}
		b.WriteString("Speakers: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n\n")
	}

	b.WriteString("Transcript:\n")
	if len(exp.Transcript) == 0 {
		b.WriteString("(empty)\n")
	} else {
		b.WriteString(textcodec.FormatLines(exp.Transcript))
	}

	if len(exp.Notes) > 0 {
		b.WriteString("\nNotes:\n")
		b.WriteString(textcodec.FormatBlocks(exp.Notes))
	}
	return b.String()
}
