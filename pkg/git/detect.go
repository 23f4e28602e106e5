// Package git detects repository information used to label sessions.
package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const detectTimeout = 5 * time.Second

// ProjectName returns the base name of the git repository containing dir.
// Outside a repository, or when git is not installed, it falls back to the
// base name of dir itself. An empty dir means the working directory.
func ProjectName(ctx context.Context, dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}

	if top, err := TopLevel(ctx, dir); err == nil && top != "" {
		return filepath.Base(top)
	}
	return filepath.Base(dir)
}

// TopLevel returns the root of the working tree containing dir.
func TopLevel(ctx context.Context, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
