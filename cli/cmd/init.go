package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/strataconf/strata/log"
)

// starterDocument is the template written by the init command. It shows
// one of each value form plus a vars block wired into a reference.
const starterDocument = `# strata starter document

vars {
  app myapp
  region us-east-1
}

name $vars.app

server {
  host localhost
  port!int 8080
  tls!bool false
}

features!list {
  first enabled
  second disabled
}

tags [alpha, $vars.region]

limits!table {
  columns [name, ceiling]
  rows {
    [requests, 1000]
    [connections, 50]
  }
}
`

// Init writes a starter document to the given path.
type Init struct {
	Force bool `help:"Overwrite an existing file." short:"f"`

	Path string `arg:"" default:"config.strata" help:"Destination file." name:"path"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) error {
	if _, err := os.Stat(i.Path); err == nil && !i.Force {
		return ErrFileExists.With(slog.String("file", i.Path))
	}

	if err := os.WriteFile(i.Path, []byte(starterDocument), 0o644); err != nil {
		return ErrWriteOutput.Wrap(err).
			With(slog.String("file", i.Path))
	}

	log.InfoContext(ctx, "wrote starter document",
		slog.String("path", i.Path))

	return nil
}
