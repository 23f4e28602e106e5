// Package sqlitepath resolves where the frames SQLite database lives.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/frames/pkg/dotdir"
)

// EnvVar overrides every other location except an explicit path.
const EnvVar = "FRAMES_DB"

// ResolveSQLitePath picks the database path in this order:
//  1. override (the --sqlite flag or storage.sqlite_path)
//  2. $FRAMES_DB
//  3. an existing frames.db in the working directory
//  4. frames.db inside the resolved .frames/ directory
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvVar)); envPath != "" {
		return envPath, nil
	}

	if _, err := os.Stat(dotdir.DatabaseFile); err == nil {
		return filepath.Abs(dotdir.DatabaseFile)
	}

	return dotdir.NewManager().Path(configDir, dotdir.DatabaseFile)
}
