package ghwatch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// resultHeader keeps the legacy column names of the tracking sheets.
var resultHeader = []string{"任务运行时间", "是否成功", "最后commit", "job_id", "Output Token Throughput"}

// Result is one row of a keyword's results table.
type Result struct {
	RunTime    time.Time
	Conclusion string
	CommitSHA  string
	JobID      int64
	Throughput string // empty when the log had no benchmark table
}

// ConclusionEmoji maps a job conclusion onto the marker recorded in the
// results table.
func ConclusionEmoji(conclusion string) string {
	switch conclusion {
	case "success":
		return "✅"
	case "failure":
		return "❌"
	case "cancelled":
		return "⚪"
	case "skipped":
		return "🚫"
	default:
		return "?"
	}
}

// AppendResult records one job outcome in <dir>/<keyword>_results.csv. Rows
// are deduplicated by job ID and kept ordered by run time; the whole file
// is rewritten each call. An existing file with a foreign header is
// discarded and started over.
func AppendResult(dir, keyword string, r Result) (bool, error) {
	path := filepath.Join(dir, keyword+"_results.csv")

	rows, err := readResults(path)
	if err != nil {
		return false, err
	}

	jobID := strconv.FormatInt(r.JobID, 10)
	appended := true
	for _, row := range rows {
		if row[3] == jobID {
			appended = false
			break
		}
	}
	if appended {
		rows = append(rows, []string{
			r.RunTime.Format(time.RFC3339),
			r.Conclusion,
			r.CommitSHA,
			jobID,
			r.Throughput,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ti, erri := time.Parse(time.RFC3339, rows[i][0])
		tj, errj := time.Parse(time.RFC3339, rows[j][0])
		if erri != nil || errj != nil {
			return false
		}
		return ti.Before(tj)
	})

	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create results directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("failed to write results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(resultHeader); err != nil {
		return false, fmt.Errorf("failed to write results header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return false, fmt.Errorf("failed to write results rows: %w", err)
	}
	return appended, nil
}

func readResults(path string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 || !equalHeader(records[0], resultHeader) {
		return nil, nil
	}

	var rows [][]string
	for _, row := range records[1:] {
		for len(row) < len(resultHeader) {
			row = append(row, "")
		}
		rows = append(rows, row[:len(resultHeader)])
	}
	return rows, nil
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
