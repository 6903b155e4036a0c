package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/leonardotrapani/hyprscribe/internal/logging"
)

var ErrConfigNotFound = errors.New("config not found")

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, "hyprscribe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile decodes path over the defaults, so omitted keys keep their default value.
func LoadFile(configPath string) (*Config, error) {
	logger := logging.WithComponent("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: run hyprscribe configure", ErrConfigNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	logger.Debug().Str("path", configPath).Msg("loading configuration")
	config := DefaultConfig()
	meta, err := toml.DecodeFile(configPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		logger.Warn().Str("path", configPath).Interface("keys", undecoded).Msg("unknown configuration keys ignored")
	}

	config.applyThreadsDefault()
	return config, nil
}

// LoadOrCreate loads the config, writing the defaults first when no file exists.
func LoadOrCreate() (*Config, error) {
	config, err := Load()
	if errors.Is(err, ErrConfigNotFound) {
		if err := Save(DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		logger := logging.WithComponent("config")
		logger.Info().Msg("default configuration created")
		return Load()
	}
	return config, err
}

// applyThreadsDefault sets threads for local transcription if not explicitly set
func (c *Config) applyThreadsDefault() {
	if c.Transcription.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Transcription.Threads = threads
	}
}

func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(configPath, config)
}

// SaveFile writes a commented config file. The file is replaced atomically so the
// watcher never observes a half-written config.
func SaveFile(configPath string, config *Config) error {
	var b strings.Builder
	if err := configTemplate.Execute(&b, config); err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var configTemplate = template.Must(template.New("config").Funcs(template.FuncMap{
	"q": strconv.Quote,
	"dur": func(d time.Duration) string {
		return strconv.Quote(d.String())
	},
	"list": func(items []string) string {
		quoted := make([]string, len(items))
		for i, s := range items {
			quoted[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	},
	"float": func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	},
}).Parse(`# Hyprscribe Configuration
# Changes are applied by the running daemon on the next session start.

[recording]
  sample_rate = {{.Recording.SampleRate}}          # Hz, 16000 for speech engines
  channels = {{.Recording.Channels}}
  format = {{q .Recording.Format}}
  buffer_size = {{.Recording.BufferSize}}          # bytes per audio frame
  device = {{q .Recording.Device}}                  # PipeWire target (empty = default microphone)
  channel_buffer_size = {{.Recording.ChannelBufferSize}}     # frames queued before audio is dropped

[transcription]
  engine = {{q .Transcription.Engine}}       # "vosk-server" or "whisper-cpp"
  model_dir = {{q .Transcription.ModelDir}}               # model directory (absolute, ~/..., or name under models_dir)
  models_dir = {{q .Transcription.ModelsDir}}
  server_url = {{q .Transcription.ServerURL}}
  language = {{q .Transcription.Language}}                # whisper-cpp language code (empty = auto)
  threads = {{.Transcription.Threads}}                    # whisper-cpp CPU threads (0 = auto)
  pause_threshold = {{float .Transcription.PauseThreshold}}          # seconds of silence that end an utterance
  frame_timeout = {{dur .Transcription.FrameTimeout}}
  stop_timeout = {{dur .Transcription.StopTimeout}}

[session]
  poll_interval = {{dur .Session.PollInterval}}      # "0s" applies results as they arrive
  result_buffer_size = {{.Session.ResultBufferSize}}
  speakers = {{list .Session.Speakers}}                  # registered on daemon start
  export_dir = {{q .Session.ExportDir}}

[notifications]
  enabled = {{.Notifications.Enabled}}
  type = {{q .Notifications.Type}}             # "desktop", "log", "none"

[logging]
  level = {{q .Logging.Level}}                 # "debug", "info", "warn", "error"
  format = {{q .Logging.Format}}            # "console" or "json"

[metrics]
  listen = {{q .Metrics.Listen}}                  # e.g. "127.0.0.1:9464" (empty = disabled)

[archive]
  enabled = {{.Archive.Enabled}}
  path = {{q .Archive.Path}}

[llm]
  enabled = {{.LLM.Enabled}}                # summaries for "export --summary"
  provider = {{q .LLM.Provider}}             # "openai" or "groq"
  model = {{q .LLM.Model}}
  api_key = {{q .LLM.APIKey}}                  # or OPENAI_API_KEY / GROQ_API_KEY
  prompt = {{q .LLM.Prompt}}                   # empty = built-in summary prompt
`))
