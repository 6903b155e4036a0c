package main

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/tui"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for hyprscribe.
This walks through:
- the recognition engine (Vosk server or whisper.cpp) and model
- microphone capture settings
- preset speakers and the export directory
- notifications, export summaries, archive and metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()
	showNextSteps(result.Config)
	return nil
}

func showNextSteps(cfg *config.Config) {
	serviceRunning := exec.Command("systemctl", "--user", "is-active", "--quiet", "hyprscribe.service").Run() == nil

	fmt.Println("Next Steps:")
	step := 1
	if cfg.Transcription.Engine == "whisper-cpp" && cfg.Transcription.ModelDir == "" {
		fmt.Printf("%d. Download a model: hyprscribe model download base.en\n", step)
		step++
	}
	if serviceRunning {
		fmt.Printf("%d. Recording settings apply to the next recording; restart the service for anything else: systemctl --user restart hyprscribe.service\n", step)
	} else {
		fmt.Printf("%d. Start the daemon: hyprscribe serve (or systemctl --user start hyprscribe.service)\n", step)
	}
	step++
	fmt.Printf("%d. Check your setup: hyprscribe doctor\n", step)
	step++
	fmt.Printf("%d. Start transcribing: hyprscribe toggle\n", step)
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}
