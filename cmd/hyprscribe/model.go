package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/models"
	"github.com/leonardotrapani/hyprscribe/internal/tui"
)

func modelsRoot() string {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return cfg.ResolveModelsDir()
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local recognition models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	return cmd
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed model directories and downloadable whisper models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelList(modelsRoot())
		},
	}
}

func runModelList(root string) error {
	installed, err := models.ListModelDirs(root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", root, err)
	}

	fmt.Printf("\ninstalled in %s:\n", root)
	if len(installed) == 0 {
		fmt.Println(tui.StyleMuted.Render("  (none)"))
	}
	for _, dir := range installed {
		fmt.Printf("  %s\n", dir)
	}

	fmt.Println("\nwhisper-cpp:")
	for _, m := range models.WhisperModels() {
		prefix := "  [ ]"
		if slices.Contains(installed, m.DirName()) {
			prefix = "  [x]"
		}
		lang := "english"
		if m.Multilingual {
			lang = "multilingual"
		}
		fmt.Printf("%s %s - %s [%s, %s]\n", prefix, m.ID, m.Name, lang, m.Size)
	}
	fmt.Println()
	return nil
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-id>",
		Short: "Download a whisper model (e.g. base.en)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelDownload(cmd.Context(), args[0], modelsRoot())
		},
	}
}

func runModelDownload(ctx context.Context, id, root string) error {
	model := models.GetWhisperModel(id)
	if model == nil {
		return fmt.Errorf("unknown model: %s (see: hyprscribe model list)", id)
	}

	target := filepath.Join(root, model.DirName())
	if _, err := models.FindWhisperModel(target); err == nil {
		fmt.Printf("model '%s' is already installed at %s\n", id, target)
		return nil
	}

	fmt.Printf("downloading %s (%s)...\n", id, model.Size)
	var lastPercent int
	dir, err := models.Download(ctx, id, root, func(downloaded, total int64) {
		if total > 0 {
			percent := int(downloaded * 100 / total)
			if percent >= lastPercent+10 {
				fmt.Printf("%d%% ", percent)
				lastPercent = percent
			}
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Printf("\ndownload complete: %s\n", dir)
	fmt.Printf("use it with:\n  [transcription]\n  engine = \"whisper-cpp\"\n  model_dir = %q\n", filepath.Base(dir))
	return nil
}
