package injection

import (
	"context"
	"fmt"
)

func setClipboard(ctx context.Context, run runner, text string) error {
	if err := run(ctx, text, "wl-copy"); err != nil {
		return fmt.Errorf("copy to clipboard: %w (install wl-clipboard)", err)
	}
	return nil
}
