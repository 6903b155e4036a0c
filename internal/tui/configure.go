package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/language"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionRecording     ConfigSection = "recording"
	SectionSession       ConfigSection = "session"
	SectionNotifications ConfigSection = "notifications"
	SectionLLM           ConfigSection = "llm"
	SectionStorage       ConfigSection = "storage"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run shows the section menu until the user saves or discards. cfg is edited in place.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println(StyleMuted.Render("Live transcription with speakers and notes"))
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render("Invalid configuration: " + err.Error()))
				if !confirm("Go back and fix it?", "Back", "Discard") {
					return &ConfigureResult{Cancelled: true}, nil
				}
				continue
			}
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionTranscription:
			_ = editTranscription(cfg)
		case SectionRecording:
			_ = editRecording(cfg)
		case SectionSession:
			_ = editSession(cfg)
		case SectionNotifications:
			_ = editNotifications(cfg)
		case SectionLLM:
			_ = editLLM(cfg)
		case SectionStorage:
			_ = editStorage(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatTranscriptionLabel(cfg), SectionTranscription),
		huh.NewOption(formatRecordingLabel(cfg), SectionRecording),
		huh.NewOption(formatSessionLabel(cfg), SectionSession),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption(formatLLMLabel(cfg), SectionLLM),
		huh.NewOption(formatStorageLabel(cfg), SectionStorage),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func formatTranscriptionLabel(cfg *config.Config) string {
	if cfg.Transcription.Engine == "vosk-server" {
		return fmt.Sprintf("Transcription (vosk-server at %s)", cfg.Transcription.ServerURL)
	}
	model := cfg.Transcription.ModelDir
	if model == "" {
		model = "no model"
	}
	return fmt.Sprintf("Transcription (%s, %s)", cfg.Transcription.Engine, model)
}

func formatRecordingLabel(cfg *config.Config) string {
	device := cfg.Recording.Device
	if device == "" {
		device = "default mic"
	}
	return fmt.Sprintf("Recording (%d Hz, %s)", cfg.Recording.SampleRate, device)
}

func formatSessionLabel(cfg *config.Config) string {
	if len(cfg.Session.Speakers) == 0 {
		return "Session (no preset speakers)"
	}
	return fmt.Sprintf("Session (%s)", strings.Join(cfg.Session.Speakers, ", "))
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

func formatLLMLabel(cfg *config.Config) string {
	if !cfg.LLM.Enabled {
		return "Summaries (off)"
	}
	return fmt.Sprintf("Summaries (%s, %s)", cfg.LLM.Provider, cfg.LLM.Model)
}

func formatStorageLabel(cfg *config.Config) string {
	var parts []string
	if cfg.Archive.Enabled {
		parts = append(parts, "archive on")
	}
	if cfg.Metrics.Listen != "" {
		parts = append(parts, "metrics "+cfg.Metrics.Listen)
	}
	if len(parts) == 0 {
		return "Archive, Metrics & Logging"
	}
	return fmt.Sprintf("Archive, Metrics & Logging (%s)", strings.Join(parts, ", "))
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, line := range summaryLines(cfg) {
		fmt.Println("  " + line)
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func summaryLines(cfg *config.Config) []string {
	onOff := func(b bool) string {
		if b {
			return "enabled"
		}
		return "disabled"
	}

	lines := []string{
		StyleLabel.Render("Engine:") + " " + cfg.Transcription.Engine,
	}
	switch cfg.Transcription.Engine {
	case "vosk-server":
		lines = append(lines, StyleLabel.Render("Server:")+" "+cfg.Transcription.ServerURL)
	default:
		lines = append(lines, StyleLabel.Render("Model:")+" "+cfg.ResolveModelDir())
	}
	if cfg.Transcription.Language != "" {
		lines = append(lines, StyleLabel.Render("Language:")+" "+language.Label(cfg.Transcription.Language))
	}
	if len(cfg.Session.Speakers) > 0 {
		lines = append(lines, StyleLabel.Render("Speakers:")+" "+strings.Join(cfg.Session.Speakers, ", "))
	}
	lines = append(lines,
		StyleLabel.Render("Exports:")+" "+cfg.ExportDir(),
		StyleLabel.Render("Notifications:")+" "+onOff(cfg.Notifications.Enabled),
		StyleLabel.Render("Summaries:")+" "+onOff(cfg.LLM.Enabled),
		StyleLabel.Render("Archive:")+" "+onOff(cfg.Archive.Enabled),
	)
	return lines
}

func confirm(title, yes, no string) bool {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title(title).Affirmative(yes).Negative(no).Value(&ok),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return false
	}
	return ok
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
