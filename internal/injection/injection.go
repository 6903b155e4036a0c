// Package injection hands transcript text to the Wayland desktop, either through the
// clipboard or by typing it into the focused window.
package injection

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	ModeClipboard = "clipboard"
	ModeType      = "type"
)

var ErrEmptyText = errors.New("nothing to inject")

type Injector interface {
	Inject(ctx context.Context, text string) error
}

type Config struct {
	Mode    string        // "clipboard" or "type"
	Timeout time.Duration // per external command
}

func DefaultConfig() Config {
	return Config{
		Mode:    ModeClipboard,
		Timeout: 3 * time.Second,
	}
}

// runner executes an external program with stdin.
type runner func(ctx context.Context, stdin, name string, args ...string) error

func execRunner(ctx context.Context, stdin, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found: %w", name, err)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

type injector struct {
	config Config
	run    runner
}

func NewInjector(config Config) (Injector, error) {
	if config.Mode != ModeClipboard && config.Mode != ModeType {
		return nil, fmt.Errorf("unsupported injection mode: %s", config.Mode)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &injector{config: config, run: execRunner}, nil
}

func (i *injector) Inject(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, i.config.Timeout)
	defer cancel()

	if i.config.Mode == ModeType {
		return typeText(ctx, i.run, text)
	}
	return setClipboard(ctx, i.run, text)
}
