package injection

import (
	"context"
	"fmt"
)

// typeText sends text through wtype. The "--" keeps text starting with a dash from
// being read as an option.
func typeText(ctx context.Context, run runner, text string) error {
	if err := run(ctx, "", "wtype", "--", text); err != nil {
		return fmt.Errorf("type text: %w (install wtype)", err)
	}
	return nil
}
