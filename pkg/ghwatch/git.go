package ghwatch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CommitLogs stages the archive directory, commits it with a tracking
// message and pushes. A clean tree after staging is tolerated: the commit
// and push are skipped and the first return is false.
//
// git reports "nothing to commit" on stdout with a non-zero exit, so both
// the output and the error text are checked.
func CommitLogs(ctx context.Context, runner Runner, logsDir string, now time.Time) (bool, error) {
	if _, err := runner.Run(ctx, "git", "add", logsDir); err != nil {
		return false, fmt.Errorf("failed to stage %s: %w", logsDir, err)
	}

	message := fmt.Sprintf("track ci data %s", now.Format("2006-01-02 15:04:05"))
	out, err := runner.Run(ctx, "git", "commit", "-m", message)
	if err != nil {
		if strings.Contains(out, "nothing to commit") || strings.Contains(err.Error(), "nothing to commit") {
			return false, nil
		}
		return false, fmt.Errorf("failed to commit: %w", err)
	}

	if _, err := runner.Run(ctx, "git", "push"); err != nil {
		return true, fmt.Errorf("failed to push: %w", err)
	}
	return true, nil
}
