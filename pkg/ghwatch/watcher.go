// Package ghwatch archives nightly CI results: it pulls the logs of target
// jobs from recent workflow runs through the gh CLI, stores them with a
// per-keyword results table in the tracking repository and commits the
// changes.
package ghwatch

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/starmountain1997/vaops/pkg/config"
	"github.com/starmountain1997/vaops/pkg/db"
)

// Options configure one watch pass. Zero values fall back to the nightly
// defaults in pkg/config.
type Options struct {
	Repo     string
	Workflow string
	Branch   string
	Runs     int
	LogsDir  string
	Keywords []string
	NoGit    bool
}

// Watcher archives the logs of matching CI jobs and tracks their outcomes.
type Watcher struct {
	opts    Options
	gh      *Client
	runner  Runner
	archive Archive
	index   *db.DB // optional second dedup layer
	log     *slog.Logger
}

// New builds a watcher. index may be nil to run without the sqlite job
// index; logger may be nil to discard progress output.
func New(opts Options, runner Runner, index *db.DB, logger *slog.Logger) *Watcher {
	if opts.Repo == "" {
		opts.Repo = config.DefaultWatchRepo
	}
	if opts.Workflow == "" {
		opts.Workflow = config.DefaultWorkflow
	}
	if opts.Branch == "" {
		opts.Branch = config.DefaultWatchBranch
	}
	if opts.Runs <= 0 {
		opts.Runs = config.DefaultRunLimit
	}
	if opts.LogsDir == "" {
		opts.LogsDir = config.DefaultLogsDir
	}
	if len(opts.Keywords) == 0 {
		opts.Keywords = config.TargetJobKeywords
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		opts:    opts,
		gh:      &Client{Repo: opts.Repo, Runner: runner},
		runner:  runner,
		archive: Archive{Dir: opts.LogsDir},
		index:   index,
		log:     logger,
	}
}

// Watch runs one archive pass: list recent runs, archive the target jobs of
// each, then commit and push whatever changed.
func (w *Watcher) Watch(ctx context.Context) error {
	w.log.Info("checking nightly runs",
		"repo", w.opts.Repo, "workflow", w.opts.Workflow, "runs", w.opts.Runs)

	runs, err := w.gh.RecentRuns(ctx, w.opts.Workflow, w.opts.Branch, w.opts.Runs)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		w.log.Warn("no scheduled runs found",
			"workflow", w.opts.Workflow, "branch", w.opts.Branch)
	}

	for _, run := range runs {
		if err := w.archiveRun(ctx, run); err != nil {
			return err
		}
	}

	if w.opts.NoGit {
		return nil
	}
	committed, err := CommitLogs(ctx, w.runner, w.opts.LogsDir, time.Now())
	if err != nil {
		return err
	}
	if committed {
		w.log.Info("changes committed and pushed")
	} else {
		w.log.Info("no changes to commit")
	}
	return nil
}

func (w *Watcher) archiveRun(ctx context.Context, run WorkflowRun) error {
	runDate := run.CreatedAt.Format("2006-01-02")
	w.log.Info("checking run",
		"number", run.Number, "id", run.DatabaseID, "date", runDate, "conclusion", run.Conclusion)

	jobs, err := w.gh.TargetJobs(ctx, run.DatabaseID, w.opts.Keywords)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		w.log.Info("no target jobs in run", "run", run.DatabaseID)
		return nil
	}

	for _, job := range jobs {
		if err := w.archiveJob(ctx, run, job, runDate); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) archiveJob(ctx context.Context, run WorkflowRun, job Job, runDate string) error {
	keyword := MatchKeyword(job.Name, w.opts.Keywords)
	w.log.Info("found target job",
		"name", job.Name, "id", job.DatabaseID, "conclusion", job.Conclusion)

	if w.index != nil {
		archived, err := w.index.HasJob(job.DatabaseID)
		if err != nil {
			w.log.Warn("job index lookup failed", "error", err)
		} else if archived {
			w.log.Info("job already archived", "id", job.DatabaseID)
			return nil
		}
	}

	logContent, err := w.gh.JobLog(ctx, run.DatabaseID, job.DatabaseID)
	if err != nil {
		return err
	}

	var throughputText string
	throughput, found := ExtractThroughput(logContent)
	if found {
		throughputText = strconv.FormatFloat(throughput, 'f', -1, 64)
		w.log.Info("throughput extracted", "tokens_per_second", throughput)
	}

	logPath, written, err := w.archive.SaveLog(runDate, run.DatabaseID, job, logContent, keyword, run.HeadSha)
	if err != nil {
		return err
	}
	if written {
		w.log.Info("log saved", "path", logPath)
	} else {
		w.log.Info("log already saved", "path", logPath)
	}

	appended, err := AppendResult(w.opts.LogsDir, keyword, Result{
		RunTime:    run.CreatedAt,
		Conclusion: ConclusionEmoji(job.Conclusion),
		CommitSHA:  run.HeadSha,
		JobID:      job.DatabaseID,
		Throughput: throughputText,
	})
	if err != nil {
		return err
	}
	if appended {
		w.log.Info("result recorded", "keyword", keyword, "job", job.DatabaseID)
	}

	if w.index != nil {
		if err := w.index.SaveJob(&db.ArchivedJob{
			JobID:      job.DatabaseID,
			RunID:      run.DatabaseID,
			Keyword:    keyword,
			Conclusion: job.Conclusion,
			Throughput: throughput,
			LogPath:    logPath,
			RunTime:    run.CreatedAt,
		}); err != nil {
			w.log.Warn("failed to record job in index", "error", err)
		}
	}
	return nil
}
