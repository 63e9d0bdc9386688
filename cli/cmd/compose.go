package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/strataconf/strata/lang"
	"github.com/strataconf/strata/log"
)

// Compose flattens a document's composition directives, resolves its
// variable references, and prints the canonical projection.
type Compose struct {
	Format string   `default:"json" enum:"native,json,yaml" help:"Output representation."                      short:"f"`
	Indent int      `default:"2"                            help:"Indent width."                               short:"i"`
	Output string   `default:"-"                            help:"Output file or '-' for stdout."              short:"o"`
	Set    []string `                                       help:"Additional vars as path=value."              name:"set" placeholder:"path=value"`
	Raw    bool     `                                       help:"Skip variable resolution."`

	Source string `arg:"" default:"-" help:"Source document or '-' for stdin." name:"source"`
}

// Run executes the compose command.
func (c *Compose) Run(ctx context.Context) error {
	source, name, dir, err := readSource(c.Source)
	if err != nil {
		return err
	}

	logger := log.Default()

	doc, err := lang.ParseString(ctx, source, lang.WithLogger(logger))
	if err != nil {
		return composeDiag(err, name, source)
	}

	composer := lang.NewComposer(
		fileLoader(ctx, dir),
		lang.WithComposeLogger(logger),
	)

	doc, err = composer.Compose(ctx, doc)
	if err != nil {
		return composeDiag(err, name, source)
	}

	if err := applySetFlags(doc, c.Set); err != nil {
		return err
	}

	if !c.Raw {
		opts := append(
			Namespaces(doc),
			lang.WithResolveLogger(logger),
		)

		if err := lang.NewResolver(opts...).Resolve(ctx, doc); err != nil {
			return composeDiag(err, name, source)
		}
	}

	out, done, err := openOutput(c.Output)
	if err != nil {
		return err
	}

	switch c.Format {
	case "native":
		err = doc.Format(out, c.Indent)
	case "yaml":
		err = doc.FormatYAML(out, c.Indent)
	default:
		err = doc.FormatJSON(out, c.Indent)
	}

	if err != nil {
		done()

		return err
	}

	return done()
}

// composeDiag attaches the source name and, for positioned diagnostics,
// a caret snippet of the offending line.
func composeDiag(err error, name, source string) error {
	le := lang.WrapError(err).With(slog.String("file", name))

	if snippet := le.Snippet(source); snippet != "" {
		le = le.With(slog.String("snippet", snippet))
	}

	return le
}

// fileLoader resolves base and include references as file paths relative
// to the referencing document's directory.
func fileLoader(ctx context.Context, dir string) lang.LoaderFunc {
	return func(ref string) (*lang.Document, error) {
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		return lang.ParseString(ctx, string(data))
	}
}

// applySetFlags folds --set path=value pairs into the document's vars
// block, creating it and any intermediate blocks as needed.
func applySetFlags(doc *lang.Document, pairs []string) error {
	if len(pairs) == 0 {
		return nil
	}

	vars, ok := doc.Get("vars")
	if !ok {
		vars = &lang.Entry{
			Key:   "vars",
			Value: &lang.Value{Kind: lang.KindBlock, Block: lang.NewBlock(lang.OrderKeys)},
		}
		doc.Append(vars)
	}

	if vars.Value.Kind != lang.KindBlock {
		return ErrBadSetFlag.Wrap(fmt.Errorf("vars is not a block"))
	}

	for _, pair := range pairs {
		path, value, ok := strings.Cut(pair, "=")
		if !ok || path == "" {
			return ErrBadSetFlag.With(slog.String("value", pair))
		}

		if err := setVar(vars.Value.Block, strings.Split(path, "."), value); err != nil {
			return ErrBadSetFlag.Wrap(err).With(slog.String("value", pair))
		}
	}

	return nil
}

func setVar(b *lang.Block, path []string, value string) error {
	key := path[0]

	if len(path) == 1 {
		b.Set(&lang.Entry{Key: key, Value: lang.NewScalar(value)})

		return nil
	}

	e, ok := b.Get(key)
	if !ok {
		e = &lang.Entry{
			Key:   key,
			Value: &lang.Value{Kind: lang.KindBlock, Block: lang.NewBlock(lang.OrderKeys)},
		}
		b.Set(e)
	}

	if e.Value.Kind != lang.KindBlock {
		return fmt.Errorf("%q is not a block", key)
	}

	return setVar(e.Value.Block, path[1:], value)
}
