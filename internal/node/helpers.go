package node

import (
	"os"
	"path/filepath"
	"strings"
)

// expandPath expands environment variables in path, then a leading "~" or
// "~/" to the user's home directory. Paths from the config file and flags
// both go through it.
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
