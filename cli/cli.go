package cli

import (
	"context"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/strataconf/strata/cli/cmd"
	"github.com/strataconf/strata/pkg"
)

// CLI is the top-level command-line interface for strata.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Init    cmd.Init    `cmd:"" help:"Write a starter document."`
	Fmt     cmd.Fmt     `cmd:"" help:"Reformat a document or project it to JSON or YAML."`
	Check   cmd.Check   `cmd:"" help:"Parse documents and report diagnostics."`
	Compose cmd.Compose `cmd:"" help:"Compose a document and print its canonical projection."`
}

// Run executes the strata CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon
// completion.
func Run(ctx context.Context, exit func(code int), args ...string) error {
	var cli CLI

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{cli.Log.group(), cli.Pprof.group()}),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.DefaultEnvars(strings.ToUpper(pkg.Name)),
		kong.Configuration(tomlConfig, configPath()),
		kong.Vars{"version": pkg.Name + " " + strings.TrimSpace(pkg.Version)},
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx)
}
