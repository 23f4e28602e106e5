// Package dotdir locates the .frames/ directory that holds configuration,
// the SQLite database, the log file, credentials and the current session.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DirName = ".frames"

	ConfigFile   = "config.toml"
	DatabaseFile = "frames.db"
	LogFile      = "frames.log"
)

// dirPerm keeps credentials.toml's parent private to the user.
const dirPerm = 0o700

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target resolves the .frames/ directory, creating it if needed:
//  1. overrideDir when non-empty
//  2. the nearest .frames/ in the working directory or one of its parents
//  3. ~/.frames/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		var err error
		if dir, err = m.nearest(); err != nil {
			return "", err
		}
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return "", fmt.Errorf("creating frames directory %s: %w", abs, err)
	}
	return abs, nil
}

// Path is Target joined with name.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// InitLocal creates dir/.frames/. created is false when it already existed.
func (m *Manager) InitLocal(dir string) (target string, created bool, err error) {
	target = filepath.Join(dir, DirName)
	if isDir(target) {
		return target, false, nil
	}
	if err := os.MkdirAll(target, dirPerm); err != nil {
		return "", false, fmt.Errorf("creating %s directory: %w", DirName, err)
	}
	return target, true, nil
}

// nearest walks up from the working directory looking for .frames/. The
// home directory's own .frames/ is not a project directory and ends the walk.
func (m *Manager) nearest() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	home, _ := os.UserHomeDir()

	for dir := cwd; ; {
		if dir == home {
			return "", nil
		}
		if candidate := filepath.Join(dir, DirName); isDir(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
