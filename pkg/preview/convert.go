package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ErrConverterUnavailable reports that a legacy-format conversion tool is
// not installed in this deployment. It is distinguishable from conversion
// failure so callers can treat the format as unsupported-here rather than
// broken input.
var ErrConverterUnavailable = errors.New("format converter not available")

// Converter turns a legacy format the pipeline cannot parse natively into
// one it can. Implementations run one-shot subprocesses with their own
// timeout.
type Converter interface {
	// Available reports whether the backing tool can be invoked.
	Available() bool
	// Convert transforms data from one format extension to another and
	// returns the converted bytes.
	Convert(ctx context.Context, data []byte, fromExt, toExt string) ([]byte, error)
}

// ExecConverter shells out to an external conversion tool that takes an
// input path and an output path as its final two arguments.
type ExecConverter struct {
	// Tool is the executable name, resolved on PATH.
	Tool string
	// Args precede the input and output paths.
	Args []string
	// Timeout bounds one conversion. Zero means 60 seconds.
	Timeout time.Duration
}

// Available reports whether Tool resolves on PATH.
func (c *ExecConverter) Available() bool {
	if c.Tool == "" {
		return false
	}
	_, err := exec.LookPath(c.Tool)
	return err == nil
}

// Convert writes data to a temp file, runs the tool, and reads the result
// back. The subprocess is killed when the deadline passes.
func (c *ExecConverter) Convert(ctx context.Context, data []byte, fromExt, toExt string) ([]byte, error) {
	if !c.Available() {
		return nil, fmt.Errorf("%w: %s", ErrConverterUnavailable, c.Tool)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "fabpreview-convert-")
	if err != nil {
		return nil, fmt.Errorf("convert: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input."+fromExt)
	out := filepath.Join(dir, "output."+toExt)
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("convert: write input: %w", err)
	}

	args := append(append([]string{}, c.Args...), in, out)
	cmd := exec.CommandContext(ctx, c.Tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("convert: %s timed out after %s", c.Tool, timeout)
		}
		return nil, fmt.Errorf("convert: %s: %w: %s", c.Tool, err, stderr.String())
	}

	converted, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("convert: read output: %w", err)
	}
	return converted, nil
}
