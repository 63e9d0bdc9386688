package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataconf/strata/lang"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestCompose_Run(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "common.strata", "server {\n  host localhost\n  port!int 80\n}\n")
	source := writeFile(t, dir, "app.strata", `
!base common.strata
vars {
  env production
}
server!overlay {
  port!int 8080
}
mode $vars.env
`)

	out := filepath.Join(dir, "out.json")

	cmd := &Compose{Format: "json", Indent: 0, Output: out, Source: source}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"mode":"production","server":{"host":"localhost","port":8080},"vars":{"env":"production"}}`,
		string(data))
}

func TestCompose_RunRawSkipsResolution(t *testing.T) {
	dir := t.TempDir()

	source := writeFile(t, dir, "app.strata", "vars {\n  a 1\n}\nout $vars.a\n")
	out := filepath.Join(dir, "out.json")

	cmd := &Compose{Format: "json", Output: out, Raw: true, Source: source}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Contains(t, string(data), "$vars.a")
}

func TestCompose_RunMissingBase(t *testing.T) {
	dir := t.TempDir()

	source := writeFile(t, dir, "app.strata", "!base nowhere.strata\n")

	cmd := &Compose{Format: "json", Output: filepath.Join(dir, "out.json"), Source: source}
	err := cmd.Run(context.Background())

	require.ErrorIs(t, err, lang.ErrLoad)
}

func TestFileLoader_RelativeToSourceDir(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "shared.strata", "who shared\n")

	doc, err := fileLoader(context.Background(), dir)("shared.strata")
	require.NoError(t, err)

	e, ok := doc.Get("who")
	require.True(t, ok)
	assert.Equal(t, "shared", e.Value.Scalar)
}

func TestApplySetFlags(t *testing.T) {
	doc, err := lang.ParseString(context.Background(), "vars {\n  a 1\n}\n")
	require.NoError(t, err)

	require.NoError(t, applySetFlags(doc, []string{"a=2", "db.host=local"}))

	vars, _ := doc.Get("vars")

	a, _ := vars.Value.Block.Get("a")
	assert.Equal(t, "2", a.Value.Scalar)

	db, ok := vars.Value.Block.Get("db")
	require.True(t, ok)

	host, _ := db.Value.Block.Get("host")
	assert.Equal(t, "local", host.Value.Scalar)
}

func TestApplySetFlags_CreatesVarsBlock(t *testing.T) {
	doc, err := lang.ParseString(context.Background(), "host localhost\n")
	require.NoError(t, err)

	require.NoError(t, applySetFlags(doc, []string{"region=us"}))

	vars, ok := doc.Get("vars")
	require.True(t, ok)

	region, _ := vars.Value.Block.Get("region")
	assert.Equal(t, "us", region.Value.Scalar)
}

func TestApplySetFlags_Invalid(t *testing.T) {
	doc, err := lang.ParseString(context.Background(), "")
	require.NoError(t, err)

	assert.ErrorIs(t, applySetFlags(doc, []string{"novalue"}), ErrBadSetFlag)
	assert.ErrorIs(t, applySetFlags(doc, []string{"=x"}), ErrBadSetFlag)
}

func TestApplySetFlags_PathThroughScalar(t *testing.T) {
	doc, err := lang.ParseString(context.Background(), "vars {\n  a 1\n}\n")
	require.NoError(t, err)

	assert.ErrorIs(t, applySetFlags(doc, []string{"a.b=2"}), ErrBadSetFlag)
}
