package ghwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// WorkflowRun is one workflow run as reported by gh run list.
type WorkflowRun struct {
	Number     int       `json:"number"`
	DatabaseID int64     `json:"databaseId"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	CreatedAt  time.Time `json:"createdAt"`
	HeadBranch string    `json:"headBranch"`
	HeadSha    string    `json:"headSha"`
}

// Job is one job of a workflow run.
type Job struct {
	DatabaseID int64  `json:"databaseId"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

const runListFields = "number,databaseId,name,status,conclusion,createdAt,headBranch,headSha"

// Client drives the gh CLI against one repository. Authentication is gh's
// business: it honors GH_TOKEN or its own stored login.
type Client struct {
	Repo   string
	Runner Runner
}

// RecentRuns lists the latest scheduled runs of a workflow on a branch,
// newest first.
func (c *Client) RecentRuns(ctx context.Context, workflow, branch string, limit int) ([]WorkflowRun, error) {
	out, err := c.Runner.Run(ctx, "gh", "run", "list",
		"-R", c.Repo,
		"-w", workflow,
		"-b", branch,
		"-L", strconv.Itoa(limit),
		"-e", "schedule",
		"--json", runListFields)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}

	var runs []WorkflowRun
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		return nil, fmt.Errorf("failed to decode workflow runs: %w", err)
	}
	return runs, nil
}

// RunJobs lists the jobs of one run.
func (c *Client) RunJobs(ctx context.Context, runID int64) ([]Job, error) {
	out, err := c.Runner.Run(ctx, "gh", "run", "view",
		"-R", c.Repo,
		strconv.FormatInt(runID, 10),
		"--json", "jobs")
	if err != nil {
		return nil, fmt.Errorf("failed to view run %d: %w", runID, err)
	}

	var doc struct {
		Jobs []Job `json:"jobs"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode jobs of run %d: %w", runID, err)
	}
	return doc.Jobs, nil
}

// TargetJobs narrows a run's jobs down to the ones whose name contains any
// of the keywords.
func (c *Client) TargetJobs(ctx context.Context, runID int64, keywords []string) ([]Job, error) {
	jobs, err := c.RunJobs(ctx, runID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(jobs, func(j Job, _ int) bool {
		return MatchKeyword(j.Name, keywords) != ""
	}), nil
}

// MatchKeyword returns the first keyword contained in the job name, or ""
// when none matches.
func MatchKeyword(jobName string, keywords []string) string {
	for _, k := range keywords {
		if strings.Contains(jobName, k) {
			return k
		}
	}
	return ""
}

// JobLog fetches one job's full log with the job/step prefix columns
// stripped.
func (c *Client) JobLog(ctx context.Context, runID, jobID int64) (string, error) {
	out, err := c.Runner.Run(ctx, "gh", "run", "view",
		"-R", c.Repo,
		"--log",
		"--job", strconv.FormatInt(jobID, 10),
		strconv.FormatInt(runID, 10))
	if err != nil {
		return "", fmt.Errorf("failed to fetch log of job %d: %w", jobID, err)
	}
	return StripLogPrefix(out), nil
}
