package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// readSource returns the content of the named source file, a display
// name for diagnostics, and the directory document references resolve
// against. The name "-" reads stdin.
func readSource(path string) (content, name, dir string, err error) {
	if path == stdinSource {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", "", ErrReadSource.Wrap(err)
		}

		cwd, _ := os.Getwd()

		return string(data), "(stdin)", cwd, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", "", ErrReadSource.Wrap(err).
			With(slog.String("file", path))
	}

	return string(data), path, filepath.Dir(path), nil
}

// openOutput returns the destination writer for the given path and a
// close function. An empty path or "-" writes to stdout.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == stdinSource {
		return os.Stdout, func() error { return nil }, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, ErrWriteOutput.Wrap(err).
			With(slog.String("file", path))
	}

	return file, file.Close, nil
}
