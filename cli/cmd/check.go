package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/strataconf/strata/lang"
	"github.com/strataconf/strata/log"
)

// Check parses documents and reports every diagnostic without producing
// output. A failing document does not stop the remaining sources from
// being checked.
type Check struct {
	Quiet bool `help:"Suppress per-file results; only set the exit status." short:"q"`

	Sources []string `arg:"" default:"-" help:"Documents to check, or '-' for stdin." name:"source"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) error {
	failed := 0

	for _, src := range c.Sources {
		source, name, _, err := readSource(src)
		if err != nil {
			failed++

			c.report(ctx, name, err, "")

			continue
		}

		if _, err := lang.ParseString(ctx, source); err != nil {
			failed++

			c.report(ctx, name, err, source)

			continue
		}

		if !c.Quiet {
			fmt.Fprintf(os.Stdout, "%s: ok\n", name)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(c.Sources))
	}

	return nil
}

func (c *Check) report(ctx context.Context, name string, err error, source string) {
	if c.Quiet {
		return
	}

	fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)

	le := lang.WrapError(err)
	if snippet := le.Snippet(source); snippet != "" {
		fmt.Fprintln(os.Stderr, snippet)
	}

	log.DebugContext(ctx, "check failed",
		slog.String("file", name),
		slog.Any("error", err))
}
