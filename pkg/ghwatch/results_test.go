package ghwatch

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse results: %v", err)
	}
	return records
}

func TestAppendResultCreatesFile(t *testing.T) {
	dir := t.TempDir()

	appended, err := AppendResult(dir, "kw", Result{
		RunTime:    time.Date(2025, 8, 20, 16, 0, 0, 0, time.UTC),
		Conclusion: "✅",
		CommitSHA:  "abc1234",
		JobID:      555,
		Throughput: "1234.56",
	})
	if err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	if !appended {
		t.Fatal("expected the row to be appended")
	}

	records := readCSV(t, filepath.Join(dir, "kw_results.csv"))
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1 row", len(records))
	}
	if records[0][0] != "任务运行时间" || records[0][4] != "Output Token Throughput" {
		t.Errorf("header = %v", records[0])
	}
	want := []string{"2025-08-20T16:00:00Z", "✅", "abc1234", "555", "1234.56"}
	for i, col := range want {
		if records[1][i] != col {
			t.Errorf("row[%d] = %q, want %q", i, records[1][i], col)
		}
	}
}

func TestAppendResultDeduplicatesByJobID(t *testing.T) {
	dir := t.TempDir()
	r := Result{
		RunTime:    time.Date(2025, 8, 20, 16, 0, 0, 0, time.UTC),
		Conclusion: "✅",
		CommitSHA:  "abc1234",
		JobID:      555,
	}

	if _, err := AppendResult(dir, "kw", r); err != nil {
		t.Fatalf("first AppendResult: %v", err)
	}
	appended, err := AppendResult(dir, "kw", r)
	if err != nil {
		t.Fatalf("second AppendResult: %v", err)
	}
	if appended {
		t.Error("duplicate job ID was appended")
	}

	records := readCSV(t, filepath.Join(dir, "kw_results.csv"))
	if len(records) != 2 {
		t.Errorf("records = %d, want header + 1 row", len(records))
	}
}

func TestAppendResultKeepsChronologicalOrder(t *testing.T) {
	dir := t.TempDir()

	// Newest run lands first, the way gh lists them.
	newer := Result{RunTime: time.Date(2025, 8, 20, 16, 0, 0, 0, time.UTC), Conclusion: "✅", CommitSHA: "new", JobID: 2}
	older := Result{RunTime: time.Date(2025, 8, 19, 16, 0, 0, 0, time.UTC), Conclusion: "❌", CommitSHA: "old", JobID: 1}

	if _, err := AppendResult(dir, "kw", newer); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	if _, err := AppendResult(dir, "kw", older); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "kw_results.csv"))
	if len(records) != 3 {
		t.Fatalf("records = %d, want header + 2 rows", len(records))
	}
	if records[1][3] != "1" || records[2][3] != "2" {
		t.Errorf("rows are not in run-time order: %v", records[1:])
	}
}

func TestAppendResultDiscardsForeignHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kw_results.csv")
	if err := os.WriteFile(path, []byte("some,other,sheet\n1,2,3\n"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := AppendResult(dir, "kw", Result{
		RunTime:    time.Date(2025, 8, 20, 16, 0, 0, 0, time.UTC),
		Conclusion: "✅",
		CommitSHA:  "abc",
		JobID:      9,
	}); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 2 {
		t.Fatalf("records = %d, want the foreign sheet replaced by header + 1 row", len(records))
	}
	if records[1][3] != "9" {
		t.Errorf("row = %v", records[1])
	}
}

func TestConclusionEmoji(t *testing.T) {
	cases := map[string]string{
		"success":   "✅",
		"failure":   "❌",
		"cancelled": "⚪",
		"skipped":   "🚫",
		"weird":     "?",
		"":          "?",
	}
	for conclusion, want := range cases {
		if got := ConclusionEmoji(conclusion); got != want {
			t.Errorf("ConclusionEmoji(%q) = %q, want %q", conclusion, got, want)
		}
	}
}
