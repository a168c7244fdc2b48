package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/kirsle/configdir"
)

// DB wraps the sql.DB connection
type DB struct {
	*sql.DB
}

// ArchivedJob records one CI job whose log has been saved to the tracking
// repository. JobID is the GitHub Actions job database ID and is unique.
type ArchivedJob struct {
	JobID      int64
	RunID      int64
	Keyword    string
	Conclusion string
	Throughput float64 // 0 when the log carried no benchmark table
	LogPath    string
	RunTime    time.Time
	CreatedAt  time.Time
}

// InitDB opens the archive index in the user state directory, creating the
// schema if it doesn't exist
func InitDB() (*DB, error) {
	configPath := configdir.LocalConfig("vaops")
	if err := configdir.MakePath(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return InitDBAt(filepath.Join(configPath, "data.db"))
}

// InitDBAt opens the archive index at an explicit path
func InitDBAt(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{db}
	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return database, nil
}

func (d *DB) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS archived_jobs (
		job_id INTEGER PRIMARY KEY,
		run_id INTEGER,
		keyword TEXT,
		conclusion TEXT,
		throughput REAL,
		log_path TEXT,
		run_time DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := d.Exec(query)
	return err
}

// SaveJob upserts an archived job into the index
func (d *DB) SaveJob(job *ArchivedJob) error {
	query := `
	INSERT INTO archived_jobs (job_id, run_id, keyword, conclusion, throughput, log_path, run_time)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(job_id) DO UPDATE SET
		run_id = excluded.run_id,
		keyword = excluded.keyword,
		conclusion = excluded.conclusion,
		throughput = excluded.throughput,
		log_path = excluded.log_path,
		run_time = excluded.run_time;
	`
	_, err := d.Exec(query, job.JobID, job.RunID, job.Keyword, job.Conclusion, job.Throughput, job.LogPath, job.RunTime.UTC())
	return err
}

// GetJob retrieves an archived job by its job ID
func (d *DB) GetJob(jobID int64) (*ArchivedJob, error) {
	query := `SELECT job_id, run_id, keyword, conclusion, throughput, log_path, run_time, created_at FROM archived_jobs WHERE job_id = ?`
	row := d.QueryRow(query, jobID)

	var job ArchivedJob
	err := row.Scan(&job.JobID, &job.RunID, &job.Keyword, &job.Conclusion, &job.Throughput, &job.LogPath, &job.RunTime, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// HasJob reports whether a job is already recorded in the index
func (d *DB) HasJob(jobID int64) (bool, error) {
	var count int
	err := d.QueryRow("SELECT COUNT(*) FROM archived_jobs WHERE job_id = ?", jobID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListJobs retrieves archived jobs for a keyword, oldest run first
func (d *DB) ListJobs(keyword string) ([]ArchivedJob, error) {
	query := `SELECT job_id, run_id, keyword, conclusion, throughput, log_path, run_time, created_at FROM archived_jobs WHERE keyword = ? ORDER BY run_time`
	rows, err := d.Query(query, keyword)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []ArchivedJob
	for rows.Next() {
		var job ArchivedJob
		err := rows.Scan(&job.JobID, &job.RunID, &job.Keyword, &job.Conclusion, &job.Throughput, &job.LogPath, &job.RunTime, &job.CreatedAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
