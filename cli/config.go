package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"

	"github.com/strataconf/strata/pkg"
)

// configFileName is the flag configuration file read from the user config
// directory.
const configFileName = pkg.Name + ".toml"

// configPath returns the default configuration file path, or an empty
// string when no user config directory exists.
func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, pkg.Name, configFileName)
}

// tomlConfig is a kong.ConfigurationLoader reading flag defaults from a
// TOML file. Nested tables map to prefixed flags, so
//
//	[log]
//	level = "debug"
//
// provides a default for --log-level.
func tomlConfig(r io.Reader) (kong.Resolver, error) {
	var raw map[string]any

	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	values := make(map[string]any)
	flattenConfig(raw, "", values)

	resolver := func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		v, ok := values[flag.Name]
		if !ok {
			return nil, nil
		}

		return v, nil
	}

	return kong.ResolverFunc(resolver), nil
}

// flattenConfig joins nested table keys with the flag prefix separator.
func flattenConfig(raw map[string]any, prefix string, out map[string]any) {
	for k, v := range raw {
		name := k
		if prefix != "" {
			name = prefix + "-" + k
		}

		if sub, ok := v.(map[string]any); ok {
			flattenConfig(sub, name, out)

			continue
		}

		out[name] = fmt.Sprint(v)
	}
}
