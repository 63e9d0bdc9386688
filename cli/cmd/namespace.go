package cmd

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/strataconf/strata/lang"
)

// Namespaces returns the resolver options registering every collaborator
// namespace the CLI provides: env for process environment lookup, sys for
// host introspection, and expr for expressions evaluated against the
// document being resolved.
func Namespaces(doc *lang.Document) []lang.ResolverOption {
	return []lang.ResolverOption{
		lang.WithNamespace("env", envNamespace),
		lang.WithNamespace("sys", sysNamespace),
		lang.WithNamespace("expr", exprNamespace(doc)),
	}
}

// envNamespace resolves $env.NAME to the value of environment variable
// NAME. Nested segments rejoin with underscores, so $env.MY.VAR reads
// MY_VAR.
func envNamespace(_, function string, params []string) (string, error) {
	name := function
	if len(params) > 0 {
		name = strings.Join(append([]string{function}, params...), "_")
	}

	val, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", name)
	}

	return val, nil
}

// sysNamespace resolves $sys.NAME host introspection values.
func sysNamespace(_, function string, _ []string) (string, error) {
	switch function {
	case "hostname":
		host, err := os.Hostname()
		if err != nil {
			return "", err
		}

		return host, nil

	case "user":
		u, err := user.Current()
		if err != nil {
			return "", err
		}

		return u.Username, nil

	case "home":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		return home, nil

	case "cwd":
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}

		return cwd, nil

	case "os":
		return runtime.GOOS, nil

	case "arch":
		return runtime.GOARCH, nil

	case "platform":
		return runtime.GOOS + "/" + runtime.GOARCH, nil

	default:
		return "", fmt.Errorf("unknown sys value %q", function)
	}
}

// exprNamespace resolves $expr.NAME by evaluating the scalar under the
// document's top-level expressions block named NAME. The expression
// environment exposes the document's vars by their dotted paths with
// dots replaced by underscores, plus the env and num helper maps.
func exprNamespace(doc *lang.Document) lang.NamespaceFunc {
	return func(_, function string, _ []string) (string, error) {
		e, ok := doc.Get("expressions")
		if !ok || e.Value.Kind != lang.KindBlock {
			return "", fmt.Errorf("document has no expressions block")
		}

		src, ok := e.Value.Block.Get(function)
		if !ok || src.Value.Kind != lang.KindScalar {
			return "", fmt.Errorf("no expression named %q", function)
		}

		out, err := expr.Eval(src.Value.Scalar, exprEnv(doc))
		if err != nil {
			return "", fmt.Errorf("evaluate %q: %w", function, err)
		}

		return fmt.Sprint(out), nil
	}
}

// exprEnv builds the evaluation environment from the document's vars.
// Each var is bound as "vars_" plus its dotted path with dots replaced
// by underscores, so vars.replicas is addressable as vars_replicas.
func exprEnv(doc *lang.Document) map[string]any {
	env := map[string]any{
		"hostname": func() string {
			host, _ := os.Hostname()

			return host
		},
		"getenv": os.Getenv,
	}

	for path, val := range lang.Vars(doc) {
		env["vars_"+strings.ReplaceAll(path, ".", "_")] = val
	}

	return env
}
