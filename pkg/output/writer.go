// Package output persists the combined CSV and echoes its first lines back.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/saturnines/domo-export/pkg/errors"
)

const fileMode = 0o644

// Writer saves files to a filesystem and prints previews to out
type Writer struct {
	fs  afero.Fs
	out io.Writer
}

// NewWriter creates a Writer. A nil fs means the OS filesystem, a nil out means stdout.
func NewWriter(fs afero.Fs, out io.Writer) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Writer{fs: fs, out: out}
}

// Save overwrites the file at path with content. There is no append and no backup.
func (w *Writer) Save(path, content string) error {
	if err := afero.WriteFile(w.fs, path, []byte(content), fileMode); err != nil {
		return errors.WrapError(err, errors.ErrFilesystem, "write "+path)
	}
	return nil
}

// Preview reads path back, drops blank lines and prints at most n of the rest.
// The printed lines are returned as well.
func (w *Writer) Preview(path string, n int) ([]string, error) {
	data, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrFilesystem, "read "+path)
	}

	lines := FirstLines(string(data), n)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w.out, line); err != nil {
			return lines, errors.WrapError(err, errors.ErrFilesystem, "print preview")
		}
	}
	return lines, nil
}

// FirstLines returns at most n non-blank lines of text, in order
func FirstLines(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

// ExecutableDir returns the directory of the running binary
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
