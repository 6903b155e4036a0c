package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/language"
	"github.com/leonardotrapani/hyprscribe/internal/models"
	"github.com/leonardotrapani/hyprscribe/internal/recognizer"
)

func validateInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func validateDuration(s string) error {
	if _, err := time.ParseDuration(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("invalid duration format (use '100ms', '5s', etc.)")
	}
	return nil
}

func validateFloat(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return fmt.Errorf("must be a positive number of seconds")
	}
	return nil
}

// parseList splits a comma separated list, dropping blanks and repeats.
func parseList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// modelDirOptions lists installed model directories, keeping the current value selectable.
func languageOptions() []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption(language.Auto.Name, language.Auto.Code)}
	for _, lang := range language.List() {
		options = append(options, huh.NewOption(language.Label(lang.Code), lang.Code))
	}
	return options
}

func modelDirOptions(cfg *config.Config) []huh.Option[string] {
	dirs, _ := models.ListModelDirs(cfg.ResolveModelsDir())

	var options []huh.Option[string]
	current := cfg.Transcription.ModelDir
	found := current == ""
	for _, dir := range dirs {
		options = append(options, huh.NewOption(dir, dir))
		if dir == current {
			found = true
		}
	}
	if !found {
		options = append([]huh.Option[string]{huh.NewOption(current+" (current)", current)}, options...)
	}
	return options
}

func editTranscription(cfg *config.Config) error {
	engine := cfg.Transcription.Engine
	engineOptions := []huh.Option[string]{
		huh.NewOption("Vosk server (websocket, streaming partials)", recognizer.EngineVoskServer),
		huh.NewOption("whisper.cpp (local whisper-cli per utterance)", recognizer.EngineWhisperCpp),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Recognition Engine").
				Options(engineOptions...).
				Value(&engine),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Transcription.Engine = engine

	lang := cfg.Transcription.Language
	pause := strconv.FormatFloat(cfg.Transcription.PauseThreshold, 'f', -1, 64)

	var engineField huh.Field
	serverURL := cfg.Transcription.ServerURL
	modelDir := cfg.Transcription.ModelDir
	if engine == recognizer.EngineVoskServer {
		engineField = huh.NewInput().
			Title("Server URL").
			Description("Websocket address of the Vosk server").
			Placeholder("ws://localhost:2700").
			Value(&serverURL).
			Validate(func(s string) error {
				if !strings.HasPrefix(s, "ws://") && !strings.HasPrefix(s, "wss://") {
					return fmt.Errorf("must start with ws:// or wss://")
				}
				return nil
			})
	} else {
		options := modelDirOptions(cfg)
		if len(options) == 0 {
			engineField = huh.NewInput().
				Title("Model Directory").
				Description("No models installed yet. Run 'hyprscribe model download base.en', then enter its name here.").
				Value(&modelDir)
		} else {
			engineField = huh.NewSelect[string]().
				Title("Model Directory").
				Description("Installed under " + cfg.ResolveModelsDir()).
				Options(options...).
				Value(&modelDir)
		}
	}

	form = huh.NewForm(
		huh.NewGroup(
			engineField,
			huh.NewSelect[string]().
				Title("Language").
				Description("Passed to whisper-cpp. Vosk uses the language of its model.").
				Options(languageOptions()...).
				Height(8).
				Value(&lang),
			huh.NewInput().
				Title("Pause Threshold (seconds)").
				Description("Silence between words that ends an utterance").
				Value(&pause).
				Validate(validateFloat),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.ServerURL = serverURL
	cfg.Transcription.ModelDir = modelDir
	cfg.Transcription.Language = lang
	cfg.Transcription.PauseThreshold, _ = strconv.ParseFloat(strings.TrimSpace(pause), 64)
	return nil
}

func editRecording(cfg *config.Config) error {
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	bufferSize := strconv.Itoa(cfg.Recording.BufferSize)
	channelBufferSize := strconv.Itoa(cfg.Recording.ChannelBufferSize)
	device := cfg.Recording.Device

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sample Rate (Hz)").
				Description("16000 is what most speech models expect").
				Value(&sampleRate).
				Validate(validateInt),
			huh.NewInput().
				Title("Device").
				Description("PipeWire target. Empty = default microphone.").
				Placeholder("(default)").
				Value(&device),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Frame Size (bytes)").
				Description("Bytes of PCM per frame handed to the engine").
				Value(&bufferSize).
				Validate(validateInt),
			huh.NewInput().
				Title("Frame Queue").
				Description("Frames buffered before new ones are dropped").
				Value(&channelBufferSize).
				Validate(validateInt),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.SampleRate, _ = strconv.Atoi(strings.TrimSpace(sampleRate))
	cfg.Recording.BufferSize, _ = strconv.Atoi(strings.TrimSpace(bufferSize))
	cfg.Recording.ChannelBufferSize, _ = strconv.Atoi(strings.TrimSpace(channelBufferSize))
	cfg.Recording.Device = strings.TrimSpace(device)
	return nil
}

func editSession(cfg *config.Config) error {
	speakers := strings.Join(cfg.Session.Speakers, ", ")
	exportDir := cfg.Session.ExportDir
	poll := cfg.Session.PollInterval.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Speakers").
				Description("Comma separated names registered when the daemon starts").
				Placeholder("Alice, Bob").
				Value(&speakers),
			huh.NewInput().
				Title("Export Directory").
				Description("Where 'hyprscribe export' writes sessions").
				Value(&exportDir),
			huh.NewInput().
				Title("Poll Interval").
				Description("How often recognition results are applied. 0 = immediately.").
				Value(&poll).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Session.Speakers = parseList(speakers)
	cfg.Session.ExportDir = strings.TrimSpace(exportDir)
	cfg.Session.PollInterval, _ = time.ParseDuration(strings.TrimSpace(poll))
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Recording started/stopped, speaker changes and errors").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	return nil
}

var llmModels = map[string][]string{
	"openai": {"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"},
	"groq":   {"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
}

func editLLM(cfg *config.Config) error {
	enabled := cfg.LLM.Enabled
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Summarize exports?").
				Description("Writes a markdown summary next to each export").
				Value(&enabled),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.LLM.Enabled = enabled
	if !enabled {
		return nil
	}

	provider := cfg.LLM.Provider
	if _, ok := llmModels[provider]; !ok {
		provider = "openai"
	}
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(huh.NewOption("OpenAI", "openai"), huh.NewOption("Groq", "groq")).
				Value(&provider),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	model := cfg.LLM.Model
	if provider != cfg.LLM.Provider || model == "" {
		model = llmModels[provider][0]
	}
	var modelOptions []huh.Option[string]
	for _, m := range llmModels[provider] {
		modelOptions = append(modelOptions, huh.NewOption(m, m))
	}
	apiKey := cfg.LLM.APIKey
	prompt := cfg.LLM.Prompt

	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(modelOptions...).
				Value(&model),
			huh.NewInput().
				Title("API Key").
				Description(fmt.Sprintf("Leave empty to use $%s_API_KEY", strings.ToUpper(provider))).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewText().
				Title("Custom Prompt").
				Description("Replaces the built-in summary instructions. Empty = default.").
				Value(&prompt),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.LLM.Provider = provider
	cfg.LLM.Model = model
	cfg.LLM.APIKey = strings.TrimSpace(apiKey)
	cfg.LLM.Prompt = strings.TrimSpace(prompt)
	return nil
}

func editStorage(cfg *config.Config) error {
	archiveEnabled := cfg.Archive.Enabled
	archivePath := cfg.Archive.Path
	listen := cfg.Metrics.Listen
	level := cfg.Logging.Level
	format := cfg.Logging.Format

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Archive every export?").
				Description("Keeps a copy of each distinct export in a local sqlite database").
				Value(&archiveEnabled),
			huh.NewInput().
				Title("Archive Path").
				Value(&archivePath),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Metrics Listen Address").
				Description("Serves Prometheus /metrics, e.g. 127.0.0.1:9464. Empty = off.").
				Value(&listen),
			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&level),
			huh.NewSelect[string]().
				Title("Log Format").
				Options(huh.NewOption("console", "console"), huh.NewOption("json", "json")).
				Value(&format),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Archive.Enabled = archiveEnabled
	cfg.Archive.Path = strings.TrimSpace(archivePath)
	cfg.Metrics.Listen = strings.TrimSpace(listen)
	cfg.Logging.Level = level
	cfg.Logging.Format = format
	return nil
}
