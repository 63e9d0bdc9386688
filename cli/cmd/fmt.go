package cmd

import (
	"context"
	"log/slog"

	"github.com/strataconf/strata/lang"
)

// Fmt parses a document and rewrites it in the chosen representation.
type Fmt struct {
	Native Native `cmd:"" default:"withargs" help:"Format as native strata syntax (default)."`
	JSON   JSON   `cmd:""                    help:"Project to JSON."`
	YAML   YAML   `cmd:""                    help:"Project to YAML."`
}

// Native reformats input as native strata syntax.
type Native struct {
	Indent int    `default:"2" help:"Indent width for formatted output" short:"i"`
	Output string `default:"-" help:"Output file or '-' for stdout."    short:"o"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the fmt native command.
func (f *Native) Run(ctx context.Context) error {
	source, name, _, err := readSource(f.Source)
	if err != nil {
		return err
	}

	doc, err := lang.ParseString(ctx, source)
	if err != nil {
		return lang.WrapError(err).
			With(slog.String("file", name))
	}

	out, done, err := openOutput(f.Output)
	if err != nil {
		return err
	}

	if err := doc.Format(out, f.Indent); err != nil {
		done()

		return err
	}

	return done()
}

// JSON parses input and prints its canonical projection as JSON.
type JSON struct {
	Indent int    `default:"2" help:"Indent width for JSON output"   short:"i"`
	Output string `default:"-" help:"Output file or '-' for stdout." short:"o"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the fmt json command.
func (j *JSON) Run(ctx context.Context) error {
	source, name, _, err := readSource(j.Source)
	if err != nil {
		return err
	}

	doc, err := lang.ParseString(ctx, source)
	if err != nil {
		return lang.WrapError(err).
			With(slog.String("file", name))
	}

	out, done, err := openOutput(j.Output)
	if err != nil {
		return err
	}

	if err := doc.FormatJSON(out, j.Indent); err != nil {
		done()

		return err
	}

	return done()
}

// YAML parses input and prints its canonical projection as YAML.
type YAML struct {
	Indent int    `default:"2" help:"Indent width for YAML output"   short:"i"`
	Output string `default:"-" help:"Output file or '-' for stdout." short:"o"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the fmt yaml command.
func (y *YAML) Run(ctx context.Context) error {
	source, name, _, err := readSource(y.Source)
	if err != nil {
		return err
	}

	doc, err := lang.ParseString(ctx, source)
	if err != nil {
		return lang.WrapError(err).
			With(slog.String("file", name))
	}

	out, done, err := openOutput(y.Output)
	if err != nil {
		return err
	}

	if err := doc.FormatYAML(out, y.Indent); err != nil {
		done()

		return err
	}

	return done()
}
