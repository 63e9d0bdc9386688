package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataconf/strata/lang"
)

func TestInit_WritesParseableStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.strata")

	cmd := &Init{Path: path}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	doc, err := lang.ParseString(context.Background(), string(data))
	require.NoError(t, err)

	// The starter must survive the full pipeline it advertises.
	composed, err := lang.NewComposer(nil).Compose(context.Background(), doc)
	require.NoError(t, err)

	err = lang.NewResolver().Resolve(context.Background(), composed)
	require.NoError(t, err)

	name, ok := composed.Get("name")
	require.True(t, ok)
	assert.Equal(t, "myapp", name.Value.Scalar)
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.strata")
	require.NoError(t, os.WriteFile(path, []byte("keep me\n"), 0o644))

	cmd := &Init{Path: path}
	require.ErrorIs(t, cmd.Run(context.Background()), ErrFileExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(data))
}

func TestInit_ForceOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.strata")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	cmd := &Init{Path: path, Force: true}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, starterDocument, string(data))
}

func TestCheck_ReportsFailures(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.strata")
	require.NoError(t, os.WriteFile(good, []byte("host localhost\n"), 0o644))

	bad := filepath.Join(dir, "bad.strata")
	require.NoError(t, os.WriteFile(bad, []byte("server {\n"), 0o644))

	cmd := &Check{Quiet: true, Sources: []string{good, bad}}
	err := cmd.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestCheck_AllValid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ok.strata")
	require.NoError(t, os.WriteFile(path, []byte("host localhost\n"), 0o644))

	cmd := &Check{Quiet: true, Sources: []string{path}}
	assert.NoError(t, cmd.Run(context.Background()))
}

func TestCheck_MissingFile(t *testing.T) {
	cmd := &Check{Quiet: true, Sources: []string{filepath.Join(t.TempDir(), "absent.strata")}}

	require.Error(t, cmd.Run(context.Background()))
}

func TestFmt_NativeRoundTrip(t *testing.T) {
	dir := t.TempDir()

	source := filepath.Join(dir, "in.strata")
	require.NoError(t, os.WriteFile(source,
		[]byte("server {\n  port!int 8080\n}\ntags [a, b]\n"), 0o644))

	out := filepath.Join(dir, "out.strata")

	cmd := &Native{Indent: 2, Output: out, Source: source}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	doc, err := lang.ParseString(context.Background(), string(data))
	require.NoError(t, err)

	e, ok := doc.Get("server")
	require.True(t, ok)

	port, _ := e.Value.Block.Get("port")
	assert.Equal(t, "int", port.Type)
	assert.Equal(t, "8080", port.Value.Scalar)
}

func TestReadSource_File(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "doc.strata")
	require.NoError(t, os.WriteFile(path, []byte("a 1\n"), 0o644))

	content, name, srcDir, err := readSource(path)
	require.NoError(t, err)

	assert.Equal(t, "a 1\n", content)
	assert.Equal(t, path, name)
	assert.Equal(t, dir, srcDir)
}

func TestReadSource_Missing(t *testing.T) {
	_, _, _, err := readSource(filepath.Join(t.TempDir(), "absent"))

	require.ErrorIs(t, err, ErrReadSource)
}

func TestOpenOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	w, done, err := openOutput(path)
	require.NoError(t, err)

	_, err = w.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, done())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestOpenOutput_BadPath(t *testing.T) {
	_, _, err := openOutput(filepath.Join(t.TempDir(), "no", "such", "dir", "out"))

	require.ErrorIs(t, err, ErrWriteOutput)
}

func TestErrorFormatting(t *testing.T) {
	err := ErrReadSource.Wrap(os.ErrNotExist)

	assert.True(t, strings.Contains(err.Error(), "read source"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, ErrReadSource)
}
