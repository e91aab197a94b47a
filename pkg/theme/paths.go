package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InstallRootPlaceholder is the prefix the configuration GUI writes for
// media shipped with the application. The daemon substitutes the real
// installation location at load time.
const InstallRootPlaceholder = "{install_root}"

const resolutionPlaceholder = "{resolution}"

// installRoots are the candidate installation locations, in order of
// preference. The home-relative entry is expanded at resolve time.
var installRoots = []string{
	"/usr/share/lcdhud",
	"/usr/local/share/lcdhud",
	"~/.local/share/lcdhud",
	".",
}

// ResolvePath substitutes the install-root placeholder against the first
// candidate root under which the referenced file exists. When none match,
// the last candidate is used so the frame manager can report the missing
// file with a concrete path.
func ResolvePath(path string) string {
	if path == "" || !strings.HasPrefix(path, InstallRootPlaceholder) {
		return path
	}
	rel := strings.TrimPrefix(path, InstallRootPlaceholder)
	rel = strings.TrimPrefix(rel, "/")

	var last string
	for _, root := range installRoots {
		if strings.HasPrefix(root, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			root = filepath.Join(home, root[1:])
		}
		candidate := filepath.Join(root, rel)
		last = candidate
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return last
}

func substituteResolution(path string, width, height int) string {
	return strings.ReplaceAll(path, resolutionPlaceholder, fmt.Sprintf("%d%d", width, height))
}

// ConfigFileName returns the per-resolution configuration file name the
// GUI produces, e.g. config_320240.yaml.
func ConfigFileName(width, height int) string {
	return fmt.Sprintf("config_%d%d.yaml", width, height)
}
