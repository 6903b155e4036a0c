package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/hyprscribe/internal/textcodec"
)

// SpeakerLine is one entry of a speaker listing.
type SpeakerLine struct {
	Name   string
	Color  string
	Active bool
}

// ParseSpeakerList reads the daemon's "<marker> <color> <name>" lines.
func ParseSpeakerList(body string) []SpeakerLine {
	var out []SpeakerLine
	for _, line := range strings.Split(body, "\n") {
		marker, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		color, name, ok := strings.Cut(rest, " ")
		if !ok || name == "" {
			continue
		}
		out = append(out, SpeakerLine{Name: name, Color: color, Active: marker == "*"})
	}
	return out
}

// Colors maps speaker names to their display colors.
func Colors(speakers []SpeakerLine) map[string]string {
	m := make(map[string]string, len(speakers))
	for _, s := range speakers {
		m[s.Name] = s.Color
	}
	return m
}

// Renderer colours transcript output with each speaker's color. Colors degrade to the
// output's terminal profile, so piping to a file yields plain text.
type Renderer struct {
	r *lipgloss.Renderer
}

func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{r: lipgloss.NewRenderer(w)}
}

// NewPlainRenderer never emits escape sequences.
func NewPlainRenderer(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.Ascii)
	return &Renderer{r: r}
}

func (r *Renderer) speakerStyle(color string) lipgloss.Style {
	if color == "" {
		return r.r.NewStyle().Foreground(ColorMuted)
	}
	return r.r.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}

func (r *Renderer) header(e textcodec.Entry, color string) string {
	ts := r.r.NewStyle().Foreground(ColorSubtle).Render("[" + e.Timestamp + "]")
	return ts + " " + r.speakerStyle(color).Render(e.Speaker+":")
}

// Transcript renders one line per entry, prefixed with its index when numbered is set.
func (r *Renderer) Transcript(entries []textcodec.Entry, colors map[string]string, numbered bool) string {
	if len(entries) == 0 {
		return r.r.NewStyle().Foreground(ColorMuted).Render("(no transcript yet)") + "\n"
	}

	width := len(fmt.Sprint(len(entries) - 1))
	var b strings.Builder
	for i, e := range entries {
		if numbered {
			b.WriteString(r.r.NewStyle().Foreground(ColorSubtle).Render(fmt.Sprintf("%*d ", width, i)))
		}
		b.WriteString(r.header(e, colors[e.Speaker]))
		b.WriteString(" ")
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Notes renders each note as its header line followed by the indented body.
func (r *Renderer) Notes(entries []textcodec.Entry, colors map[string]string) string {
	if len(entries) == 0 {
		return r.r.NewStyle().Foreground(ColorMuted).Render("(no notes)") + "\n"
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.header(e, colors[e.Speaker]))
		b.WriteString("\n")
		for _, line := range strings.Split(e.Text, "\n") {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r *Renderer) Speakers(speakers []SpeakerLine) string {
	if len(speakers) == 0 {
		return r.r.NewStyle().Foreground(ColorMuted).Render("(no speakers)") + "\n"
	}

	var b strings.Builder
	for _, s := range speakers {
		marker := "  "
		if s.Active {
			marker = r.r.NewStyle().Foreground(ColorSuccess).Render("▶ ")
		}
		swatch := r.r.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("●")
		fmt.Fprintf(&b, "%s%s %s %s\n", marker, swatch, r.speakerStyle(s.Color).Render(s.Name), r.r.NewStyle().Foreground(ColorSubtle).Render(s.Color))
	}
	return b.String()
}

// Partial renders the in-progress utterance.
func (r *Renderer) Partial(text string) string {
	if text == "" {
		return ""
	}
	return r.r.NewStyle().Foreground(ColorSubtle).Italic(true).Render("… "+text) + "\n"
}
