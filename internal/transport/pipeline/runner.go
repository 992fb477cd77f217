// Package pipeline runs the external conversion tools (vtracer, potrace,
// realesrgan-ncnn-vulkan) in per-run work directories.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
)

// maxStderr bounds how much tool output is kept in error messages.
const maxStderr = 512

// Runner executes an external command inside dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// toolAvailable reports whether bin resolves on PATH or as an executable path.
func toolAvailable(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("tool %s unavailable: %w", bin, err)
	}
	return nil
}

// ExecRunner runs commands with os/exec under a per-run timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// Run executes name with args. A non-zero exit includes the tail of stderr in the error.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	logger.FromContext(ctx).Debug("Pipeline command finished",
		zap.String("cmd", name),
		zap.Strings("args", args),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: timed out after %s", name, r.Timeout)
	}
	msg := strings.TrimSpace(stderr.String())
	if len(msg) > maxStderr {
		msg = "..." + msg[len(msg)-maxStderr:]
	}
	if msg != "" {
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// workspace is a scratch directory owned by one conversion run.
type workspace struct {
	dir string
}

func newWorkspace(base string) (*workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "imageuplift-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) write(name string, data []byte) (string, error) {
	p := w.path(name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return p, nil
}

func (w *workspace) read(name string) ([]byte, error) {
	data, err := os.ReadFile(w.path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	return data, nil
}

func (w *workspace) remove(ctx context.Context) {
	if err := os.RemoveAll(w.dir); err != nil {
		logger.FromContext(ctx).Warn("Failed to remove work dir", zap.String("dir", w.dir), zap.Error(err))
	}
}
