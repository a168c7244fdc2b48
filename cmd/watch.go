/*
Copyright © 2025 STARMOUNTAIN1997
*/
package cmd

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/starmountain1997/vaops/pkg/config"
	"github.com/starmountain1997/vaops/pkg/db"
	"github.com/starmountain1997/vaops/pkg/ghwatch"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Archive nightly CI job logs and track their results",
	Long: `Pull the logs of the nightly DeepSeek test jobs through the gh CLI, save
them under the logs directory with a per-keyword results table, and commit
the changes.

Run it from the repository that tracks the logs, typically on a schedule.
The gh CLI handles GitHub authentication (GH_TOKEN or gh auth login).
Already-archived logs are skipped, so repeated runs are cheap.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Load environment variables (GH_TOKEN) for the gh CLI
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		runs, _ := cmd.Flags().GetInt("runs")
		repo, _ := cmd.Flags().GetString("repo")
		workflow, _ := cmd.Flags().GetString("workflow")
		branch, _ := cmd.Flags().GetString("branch")
		logsDir, _ := cmd.Flags().GetString("logs-dir")
		keywords, _ := cmd.Flags().GetStringArray("job")
		noGit, _ := cmd.Flags().GetBool("no-git")

		logger, logFile, err := ghwatch.InitLogging()
		if err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer logFile.Close()

		index, err := db.InitDB()
		if err != nil {
			log.Printf("Warning: job index unavailable: %v", err)
			index = nil
		} else {
			defer index.Close()
		}

		watcher := ghwatch.New(ghwatch.Options{
			Repo:     repo,
			Workflow: workflow,
			Branch:   branch,
			Runs:     runs,
			LogsDir:  logsDir,
			Keywords: keywords,
			NoGit:    noGit,
		}, ghwatch.ExecRunner{}, index, logger)

		if err := watcher.Watch(context.Background()); err != nil {
			log.Fatalf("Watch failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntP("runs", "n", config.DefaultRunLimit, "Number of recent runs to check")
	watchCmd.Flags().StringP("repo", "R", config.DefaultWatchRepo, "Repository whose workflow runs are archived")
	watchCmd.Flags().StringP("workflow", "w", config.DefaultWorkflow, "Workflow file to watch")
	watchCmd.Flags().StringP("branch", "b", config.DefaultWatchBranch, "Branch whose scheduled runs are checked")
	watchCmd.Flags().String("logs-dir", config.DefaultLogsDir, "Directory the logs are archived into")
	watchCmd.Flags().StringArray("job", nil, "Job name keyword to archive (repeatable; default: nightly DeepSeek jobs)")
	watchCmd.Flags().Bool("no-git", false, "Archive only, skip git add/commit/push")
}
