package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/hyprscribe/internal/bus"
	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/deps"
	"github.com/leonardotrapani/hyprscribe/internal/models"
	"github.com/leonardotrapani/hyprscribe/internal/tui"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external programs, model and daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

type check struct {
	name   string
	ok     bool
	detail string
	fatal  bool
}

func (c check) String() string {
	mark := tui.StyleSuccess.Render("✓")
	switch {
	case !c.ok && c.fatal:
		mark = tui.StyleError.Render("✗")
	case !c.ok:
		mark = tui.StyleWarning.Render("!")
	}
	return fmt.Sprintf("%s %s %s", mark, c.name, tui.StyleMuted.Render(c.detail))
}

func dependencyChecks(list []deps.Dependency, probe func(deps.Dependency) deps.Status) []check {
	var out []check
	for _, d := range list {
		st := probe(d)
		c := check{name: d.Name, ok: st.Installed, fatal: d.Required}
		switch {
		case st.Installed && st.Version != "":
			c.detail = st.Version
		case st.Installed:
			c.detail = st.Path
		default:
			c.detail = "not found in PATH (" + d.Purpose + ")"
		}
		out = append(out, c)
	}
	return out
}

func runDoctor() error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigNotFound) {
		fmt.Println(tui.StyleWarning.Render("no config file yet, checking defaults (run: hyprscribe configure)"))
		cfg = config.DefaultConfig()
	} else if err != nil {
		return err
	}

	var checks []check
	if err := cfg.Validate(); err != nil {
		checks = append(checks, check{name: "config", detail: err.Error(), fatal: true})
	} else {
		path, _ := config.GetConfigPath()
		checks = append(checks, check{name: "config", ok: true, detail: path})
	}

	notifType := cfg.Notifications.Type
	if !cfg.Notifications.Enabled {
		notifType = "none"
	}
	checks = append(checks, dependencyChecks(deps.For(cfg.Transcription.Engine, notifType), deps.Check)...)

	if cfg.Transcription.Engine == "whisper-cpp" {
		modelDir := cfg.ResolveModelDir()
		if file, err := models.FindWhisperModel(modelDir); err != nil {
			checks = append(checks, check{name: "model", detail: err.Error(), fatal: true})
		} else {
			checks = append(checks, check{name: "model", ok: true, detail: file})
		}
	}

	if resp, err := bus.Send("version"); err != nil {
		checks = append(checks, check{name: "daemon", detail: fmt.Sprintf("%v: %v", errDaemonUnreachable, err)})
	} else {
		checks = append(checks, check{name: "daemon", ok: true, detail: resp.Message})
	}

	failed := 0
	for _, c := range checks {
		fmt.Println(c)
		if !c.ok && c.fatal {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d required check(s) failed", failed)
	}
	return nil
}
