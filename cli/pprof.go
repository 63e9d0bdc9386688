package cli

import (
	"context"
	"log/slog"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	"github.com/strataconf/strata/log"
)

type pprofConfig struct {
	Mode string `default:"" enum:",cpu,mem,alloc,block,mutex,trace" help:"Enable profiling"         placeholder:"mode"`
	Dir  string `default:""                                         help:"Profile output directory" type:"path"`
}

func (*pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling (pprof)"}
}

// start begins profiling when a mode is selected; the returned stop
// function flushes the profile.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	if f.Mode == "" {
		return func() {}
	}

	opts := []func(*profile.Profile){profile.Quiet}

	switch f.Mode {
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfile)
	case "alloc":
		opts = append(opts, profile.MemProfileAllocs)
	case "block":
		opts = append(opts, profile.BlockProfile)
	case "mutex":
		opts = append(opts, profile.MutexProfile)
	case "trace":
		opts = append(opts, profile.TraceProfile)
	}

	if f.Dir != "" {
		opts = append(opts, profile.ProfilePath(f.Dir))
	}

	log.DebugContext(ctx, "pprof start",
		slog.String("mode", f.Mode),
		slog.String("dir", f.Dir))

	p := profile.Start(opts...)

	return func() {
		log.DebugContext(ctx, "pprof stop", slog.String("mode", f.Mode))
		p.Stop()
	}
}
