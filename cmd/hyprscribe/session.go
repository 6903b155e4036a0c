package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/hyprscribe/internal/archive"
	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/injection"
	"github.com/leonardotrapani/hyprscribe/internal/textcodec"
	"github.com/leonardotrapani/hyprscribe/internal/tui"
)

func newRenderer(plain bool) *tui.Renderer {
	if plain {
		return tui.NewPlainRenderer(os.Stdout)
	}
	return tui.NewRenderer(os.Stdout)
}

func fetchSpeakers() ([]tui.SpeakerLine, error) {
	resp, err := send("speaker.list")
	if err != nil {
		return nil, fmt.Errorf("failed to list speakers: %w", err)
	}
	return tui.ParseSpeakerList(resp.Body), nil
}

func speakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speaker",
		Short: "Manage session speakers",
	}

	var plain bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List speakers; the active one is marked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			speakers, err := fetchSpeakers()
			if err != nil {
				return err
			}
			fmt.Print(newRenderer(plain).Speakers(speakers))
			return nil
		},
	}
	list.Flags().BoolVar(&plain, "plain", false, "disable colors")

	cmd.AddCommand(
		speakerActionCmd("add <name>", "Register a speaker and make it active", "speaker.add", 1),
		speakerActionCmd("use <name>", "Attribute new transcript lines to a speaker", "speaker.use", 1),
		speakerActionCmd("rename <old> <new>", "Rename a speaker", "speaker.rename", 2),
		speakerActionCmd("color <name> <#rrggbb>", "Change a speaker's color", "speaker.color", 2),
		list,
	)
	return cmd
}

func speakerActionCmd(use, short, busCmd string, nargs int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send(busCmd, args...)
			if err != nil {
				return err
			}
			printResponse(resp)
			return nil
		},
	}
}

func noteCmd() *cobra.Command {
	var line int

	cmd := &cobra.Command{
		Use:   "note [text]",
		Short: "Add a note to the latest transcript line, or to --line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 1 {
				text = args[0]
			}
			busArgs := []string{text}
			if line >= 0 {
				busArgs = append(busArgs, strconv.Itoa(line))
			}
			resp, err := send("note", busArgs...)
			if err != nil {
				return fmt.Errorf("failed to add note: %w", err)
			}
			printResponse(resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&line, "line", "l", -1, "transcript line number as shown by 'transcript -n'")
	return cmd
}

// inject hands text to the desktop instead of printing it.
func inject(ctx context.Context, mode, text string) error {
	cfg := injection.DefaultConfig()
	cfg.Mode = mode
	inj, err := injection.NewInjector(cfg)
	if err != nil {
		return err
	}
	if err := inj.Inject(ctx, text); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d characters sent (%s)\n", len(text), mode)
	return nil
}

func injectMode(copyText, typeText bool) (string, error) {
	switch {
	case copyText && typeText:
		return "", fmt.Errorf("--copy and --type are mutually exclusive")
	case copyText:
		return injection.ModeClipboard, nil
	case typeText:
		return injection.ModeType, nil
	}
	return "", nil
}

func transcriptCmd() *cobra.Command {
	var numbered, plain, copyText, typeText bool

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print the transcript so far",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := injectMode(copyText, typeText)
			if err != nil {
				return err
			}
			speakers, err := fetchSpeakers()
			if err != nil {
				return err
			}
			resp, err := send("transcript")
			if err != nil {
				return fmt.Errorf("failed to get transcript: %w", err)
			}
			if mode != "" {
				return inject(cmd.Context(), mode, resp.Body)
			}
			partial, err := send("partial")
			if err != nil {
				return err
			}

			r := newRenderer(plain)
			fmt.Print(r.Transcript(textcodec.ParseLines(resp.Body), tui.Colors(speakers), numbered))
			fmt.Print(r.Partial(partial.Message))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&numbered, "numbers", "n", false, "show line numbers")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors")
	cmd.Flags().BoolVar(&copyText, "copy", false, "copy the transcript to the clipboard (wl-copy)")
	cmd.Flags().BoolVar(&typeText, "type", false, "type the transcript into the focused window (wtype)")
	return cmd
}

func notesCmd() *cobra.Command {
	var plain, copyText bool

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Print the session notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			speakers, err := fetchSpeakers()
			if err != nil {
				return err
			}
			resp, err := send("notes")
			if err != nil {
				return fmt.Errorf("failed to get notes: %w", err)
			}
			if copyText {
				return inject(cmd.Context(), injection.ModeClipboard, resp.Body)
			}
			fmt.Print(newRenderer(plain).Notes(textcodec.ParseBlocks(resp.Body), tui.Colors(speakers)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors")
	cmd.Flags().BoolVar(&copyText, "copy", false, "copy the notes to the clipboard (wl-copy)")
	return cmd
}

// exportArgs resolves path against the caller's working directory; the daemon would
// otherwise resolve it against the export directory.
func exportArgs(path string, summary, archive bool) ([]string, error) {
	var args []string
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		args = append(args, abs)
	}
	if summary {
		args = append(args, "summary")
	}
	if archive {
		args = append(args, "archive")
	}
	return args, nil
}

func exportCmd() *cobra.Command {
	var summary, archiveFlag bool

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Write the session as JSON (default: export_dir/session-<time>.json)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			busArgs, err := exportArgs(path, summary, archiveFlag)
			if err != nil {
				return err
			}
			resp, err := send("export", busArgs...)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			printResponse(resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "also write a markdown summary via the configured LLM")
	cmd.Flags().BoolVar(&archiveFlag, "archive", false, "also store the export in the archive database")
	return cmd
}

func openArchive(ctx context.Context) (*archive.Archive, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return archive.Open(ctx, cfg.ArchivePath())
}

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse archived exports",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("archive is empty")
				return nil
			}
			for _, e := range entries {
				summary := ""
				if e.Summary != "" {
					summary = " [summary]"
				}
				fmt.Printf("%s  %s  %d speakers, %d lines, %d notes%s\n",
					e.Hash[:12], e.ExportedAt, e.Speakers, e.Segments, e.Notes, summary)
			}
			return nil
		},
	}

	var plain bool
	show := &cobra.Command{
		Use:   "show <hash>",
		Short: "Print an archived transcript and its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			hash, err := resolveHash(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			exp, err := a.Get(cmd.Context(), hash)
			if err != nil {
				return err
			}

			colors := make(map[string]string, len(exp.Speakers))
			for _, s := range exp.Speakers {
				colors[s.Name] = s.Color
			}
			r := newRenderer(plain)
			fmt.Print(r.Transcript(exp.Transcript, colors, false))
			if len(exp.Notes) > 0 {
				fmt.Println()
				fmt.Print(r.Notes(exp.Notes, colors))
			}
			return nil
		},
	}
	show.Flags().BoolVar(&plain, "plain", false, "disable colors")

	cmd.AddCommand(list, show)
	return cmd
}

// resolveHash expands a unique hash prefix as printed by 'archive list'.
func resolveHash(ctx context.Context, a *archive.Archive, prefix string) (string, error) {
	entries, err := a.List(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, e := range entries {
		if strings.HasPrefix(e.Hash, prefix) {
			if match != "" {
				return "", fmt.Errorf("hash prefix %q is ambiguous", prefix)
			}
			match = e.Hash
		}
	}
	if match == "" {
		return "", archive.ErrNotFound
	}
	return match, nil
}
