package ghwatch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kirsle/configdir"
	slogmulti "github.com/samber/slog-multi"
)

// InitLogging builds the watcher's logger: human-readable text on stderr
// fanned out with a JSON file in the user config directory, so scheduled
// runs leave an inspectable trail. The caller closes the returned file.
func InitLogging() (*slog.Logger, *os.File, error) {
	statePath := configdir.LocalConfig("vaops")
	if err := configdir.MakePath(statePath); err != nil {
		return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(statePath, "watch.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open watch log: %w", err)
	}

	logger := slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(logFile, nil),
		slog.NewTextHandler(os.Stderr, nil),
	))
	return logger, logFile, nil
}
