package ghwatch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// StripLogPrefix removes the two tab-separated prefix columns (job name and
// step name) that gh prepends to every log line. Lines with fewer than two
// tabs pass through unchanged.
func StripLogPrefix(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		first := strings.IndexByte(line, '\t')
		if first < 0 {
			continue
		}
		second := strings.IndexByte(line[first+1:], '\t')
		if second < 0 {
			continue
		}
		lines[i] = line[first+1+second+1:]
	}
	return strings.Join(lines, "\n")
}

var throughputRe = regexp.MustCompile(`Output Token Throughput │ total\s+│ (\d+\.\d+) token/s`)

// ExtractThroughput pulls the output token throughput out of the benchmark
// summary table in a job log. The second return is false when the log has
// none, which is normal for failed runs.
func ExtractThroughput(logContent string) (float64, bool) {
	m := throughputRe.FindStringSubmatch(logContent)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Archive lays out saved job logs under one base directory, one
// subdirectory per run date.
type Archive struct {
	Dir string
}

// LogPath is where a job's log lands inside the archive. The filename
// carries the run date, short commit, matched keyword and job ID so a
// directory listing reads like a timeline.
func (a Archive) LogPath(runDate, commitSHA, keyword string, runID, jobID int64) string {
	shortSHA := commitSHA
	if len(shortSHA) > 7 {
		shortSHA = shortSHA[:7]
	}
	if shortSHA == "" {
		shortSHA = strconv.FormatInt(runID, 10)
	}
	filename := fmt.Sprintf("%s_%s_%s_%d.log", runDate, shortSHA, keyword, jobID)
	return filepath.Join(a.Dir, runDate, filename)
}

// SaveLog writes one job log with its metadata header. An existing file is
// left untouched; the second return reports whether anything was written.
func (a Archive) SaveLog(runDate string, runID int64, job Job, logContent, keyword, commitSHA string) (string, bool, error) {
	path := a.LogPath(runDate, commitSHA, keyword, runID, job.DatabaseID)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", false, fmt.Errorf("failed to create log directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Run ID: %d\n", runID)
	fmt.Fprintf(&b, "# Commit: %s\n", commitSHA)
	fmt.Fprintf(&b, "# Job: %s\n", job.Name)
	fmt.Fprintf(&b, "# Date: %s\n", runDate)
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")
	b.WriteString(logContent)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", false, fmt.Errorf("failed to write log file: %w", err)
	}
	return path, true, nil
}
