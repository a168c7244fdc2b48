package ghwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner serves canned gh output and records every call.
type fakeRunner struct {
	calls     []string
	runsJSON  string
	jobsJSON  map[string]string // runID -> gh run view --json jobs output
	logs      map[string]string // jobID -> raw gh log output
	commitOut string
	commitErr error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)

	if name == "git" {
		if len(args) > 0 && args[0] == "commit" {
			return f.commitOut, f.commitErr
		}
		return "", nil
	}

	switch {
	case args[1] == "list":
		return f.runsJSON, nil
	case contains(args, "--log"):
		jobID := args[6]
		log, ok := f.logs[jobID]
		if !ok {
			return "", fmt.Errorf("no log for job %s", jobID)
		}
		return log, nil
	default:
		runID := args[4]
		jobs, ok := f.jobsJSON[runID]
		if !ok {
			return "", fmt.Errorf("no jobs for run %s", runID)
		}
		return jobs, nil
	}
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

func (f *fakeRunner) gitCalls() []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, "git ") {
			out = append(out, c)
		}
	}
	return out
}

func nightlyFake() *fakeRunner {
	rawLog := strings.Join([]string{
		"multi-node\tRun benchmark\t2025-08-20T03:11:22.0Z starting",
		"multi-node\tRun benchmark\t2025-08-20T03:40:00.0Z │ Output Token Throughput │ total      │ 1234.56 token/s │",
		"multi-node\tRun benchmark\t2025-08-20T03:40:01.0Z done",
	}, "\n")
	failedLog := strings.Join([]string{
		"multi-node\tRun benchmark\t2025-08-19T03:11:22.0Z starting",
		"multi-node\tRun benchmark\t2025-08-19T03:12:00.0Z Error: deployment failed",
	}, "\n")

	return &fakeRunner{
		runsJSON: `[
  {"number": 42, "databaseId": 102, "name": "nightly", "status": "completed", "conclusion": "success",
   "createdAt": "2025-08-20T16:00:00Z", "headBranch": "main", "headSha": "bbbbbbb2222222"},
  {"number": 41, "databaseId": 101, "name": "nightly", "status": "completed", "conclusion": "failure",
   "createdAt": "2025-08-19T16:00:00Z", "headBranch": "main", "headSha": "aaaaaaa1111111"}
]`,
		jobsJSON: map[string]string{
			"102": `{"jobs": [
  {"databaseId": 2001, "name": "multi-node-dpsk3.2-2node (a3)", "status": "completed", "conclusion": "success"},
  {"databaseId": 2002, "name": "lint", "status": "completed", "conclusion": "success"}
]}`,
			"101": `{"jobs": [
  {"databaseId": 1001, "name": "multi-node-dpsk3.2-2node (a3)", "status": "completed", "conclusion": "failure"}
]}`,
		},
		logs: map[string]string{
			"2001": rawLog,
			"1001": failedLog,
		},
	}
}

func TestWatchArchivesTargetJobs(t *testing.T) {
	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")
	fake := nightlyFake()

	w := New(Options{
		Repo:     "vllm-project/vllm-ascend",
		Workflow: "schedule_nightly_test_a3.yaml",
		LogsDir:  logsDir,
		Keywords: []string{"multi-node-dpsk3.2-2node"},
		NoGit:    true,
	}, fake, nil, nil)

	if err := w.Watch(context.Background()); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// The matching job of each run is archived under the run date; the lint
	// job is ignored.
	successLog := filepath.Join(logsDir, "2025-08-20", "2025-08-20_bbbbbbb_multi-node-dpsk3.2-2node_2001.log")
	content, err := os.ReadFile(successLog)
	if err != nil {
		t.Fatalf("read archived log: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "# Run ID: 102") {
		t.Errorf("archived log missing run header:\n%s", text)
	}
	if strings.Contains(text, "multi-node\tRun benchmark\t") {
		t.Error("archived log keeps the gh prefix columns")
	}
	if !strings.Contains(text, "Output Token Throughput") {
		t.Error("archived log lost the benchmark table")
	}

	if _, err := os.Stat(filepath.Join(logsDir, "2025-08-19", "2025-08-19_aaaaaaa_multi-node-dpsk3.2-2node_1001.log")); err != nil {
		t.Errorf("failed run's log not archived: %v", err)
	}

	for _, call := range fake.calls {
		if strings.Contains(call, "--job 2002") {
			t.Error("fetched the log of a job that matches no keyword")
		}
	}

	// Results table: chronological, with the throughput of the passing run.
	records := readCSV(t, filepath.Join(logsDir, "multi-node-dpsk3.2-2node_results.csv"))
	if len(records) != 3 {
		t.Fatalf("results = %d records, want header + 2 rows", len(records))
	}
	if records[1][1] != "❌" || records[1][3] != "1001" || records[1][4] != "" {
		t.Errorf("failed run row = %v", records[1])
	}
	if records[2][1] != "✅" || records[2][3] != "2001" || records[2][4] != "1234.56" {
		t.Errorf("passing run row = %v", records[2])
	}

	if calls := fake.gitCalls(); len(calls) != 0 {
		t.Errorf("git invoked despite NoGit: %v", calls)
	}
}

func TestWatchSecondPassAddsNothing(t *testing.T) {
	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")
	fake := nightlyFake()

	opts := Options{
		LogsDir:  logsDir,
		Keywords: []string{"multi-node-dpsk3.2-2node"},
		NoGit:    true,
	}
	if err := New(opts, fake, nil, nil).Watch(context.Background()); err != nil {
		t.Fatalf("first Watch: %v", err)
	}
	if err := New(opts, fake, nil, nil).Watch(context.Background()); err != nil {
		t.Fatalf("second Watch: %v", err)
	}

	records := readCSV(t, filepath.Join(logsDir, "multi-node-dpsk3.2-2node_results.csv"))
	if len(records) != 3 {
		t.Errorf("results = %d records after rerun, want header + 2 rows", len(records))
	}
}

func TestCommitLogsSequence(t *testing.T) {
	fake := &fakeRunner{}
	now := time.Date(2025, 8, 20, 18, 30, 0, 0, time.UTC)

	committed, err := CommitLogs(context.Background(), fake, "logs", now)
	if err != nil {
		t.Fatalf("CommitLogs: %v", err)
	}
	if !committed {
		t.Error("expected a commit")
	}

	want := []string{
		"git add logs",
		"git commit -m track ci data 2025-08-20 18:30:00",
		"git push",
	}
	calls := fake.gitCalls()
	if len(calls) != len(want) {
		t.Fatalf("git calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("git call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestCommitLogsNothingToCommit(t *testing.T) {
	fake := &fakeRunner{
		commitOut: "On branch main\nnothing to commit, working tree clean\n",
		commitErr: fmt.Errorf("git commit: exit status 1"),
	}

	committed, err := CommitLogs(context.Background(), fake, "logs", time.Now())
	if err != nil {
		t.Fatalf("CommitLogs: %v", err)
	}
	if committed {
		t.Error("reported a commit on a clean tree")
	}
	for _, call := range fake.gitCalls() {
		if strings.HasPrefix(call, "git push") {
			t.Error("pushed with nothing committed")
		}
	}
}

func TestCommitLogsCommitFailure(t *testing.T) {
	fake := &fakeRunner{
		commitOut: "",
		commitErr: fmt.Errorf("git commit: exit status 128"),
	}
	if _, err := CommitLogs(context.Background(), fake, "logs", time.Now()); err == nil {
		t.Fatal("expected the commit failure to surface")
	}
}

func TestMatchKeyword(t *testing.T) {
	keywords := []string{"multi-node-dpsk3.2-2node", "test_deepseek_v3_2_w8a8"}
	if got := MatchKeyword("multi-node-dpsk3.2-2node (a3)", keywords); got != "multi-node-dpsk3.2-2node" {
		t.Errorf("MatchKeyword = %q", got)
	}
	if got := MatchKeyword("lint", keywords); got != "" {
		t.Errorf("MatchKeyword = %q, want empty", got)
	}
}
