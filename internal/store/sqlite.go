package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jobsift/jobsift/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	fingerprint      TEXT PRIMARY KEY,
	company          TEXT NOT NULL,
	title            TEXT NOT NULL,
	location         TEXT NOT NULL,
	job_type         TEXT NOT NULL,
	experience_level TEXT NOT NULL,
	industry         TEXT NOT NULL,
	salary_low       INTEGER NOT NULL,
	salary_high      INTEGER NOT NULL,
	post_date        TEXT,
	url              TEXT,
	scraped_at       TEXT NOT NULL,
	job_description  TEXT,
	enhanced         TEXT,
	enhanced_at      TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS job_skills_required (
	job_fingerprint TEXT NOT NULL REFERENCES jobs(fingerprint),
	name            TEXT NOT NULL,
	level           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS job_skills_optional (
	job_fingerprint TEXT NOT NULL REFERENCES jobs(fingerprint),
	name            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_url ON jobs(url);
CREATE INDEX IF NOT EXISTS idx_skills_required_job ON job_skills_required(job_fingerprint);
CREATE INDEX IF NOT EXISTS idx_skills_optional_job ON job_skills_optional(job_fingerprint);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *model.JobRecord) error {
	var enhancedJSON sql.NullString
	if job.Enhanced != nil {
		b, err := json.Marshal(job.Enhanced)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal enhanced profile")
		}
		enhancedJSON = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (fingerprint, company, title, location, job_type, experience_level,
		                   industry, salary_low, salary_high, post_date, url, scraped_at,
		                   job_description, enhanced, enhanced_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (fingerprint) DO UPDATE SET
		   company = excluded.company, title = excluded.title, location = excluded.location,
		   job_type = excluded.job_type, experience_level = excluded.experience_level,
		   industry = excluded.industry, salary_low = excluded.salary_low,
		   salary_high = excluded.salary_high, post_date = excluded.post_date,
		   url = excluded.url, scraped_at = excluded.scraped_at,
		   job_description = excluded.job_description, enhanced = excluded.enhanced,
		   enhanced_at = excluded.enhanced_at, updated_at = excluded.updated_at`,
		job.Fingerprint, job.Company, job.Title, job.Location, job.JobType,
		job.ExperienceLevel, job.Industry, job.SalaryLow, job.SalaryHigh,
		job.PostDate, job.URL, job.ScrapedAt, job.JobDescription,
		enhancedJSON, job.EnhancedAt, now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert job %s", job.Fingerprint)
}

func (s *SQLiteStore) ReplaceRequiredSkills(ctx context.Context, fingerprint string, skills []model.Skill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM job_skills_required WHERE job_fingerprint = ?`, fingerprint,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear required skills %s", fingerprint)
	}
	for _, sk := range skills {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_skills_required (job_fingerprint, name, level) VALUES (?, ?, ?)`,
			fingerprint, sk.Name, sk.Level,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert required skill %s", sk.Name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit required skills")
}

func (s *SQLiteStore) ReplaceOptionalSkills(ctx context.Context, fingerprint string, skills []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM job_skills_optional WHERE job_fingerprint = ?`, fingerprint,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear optional skills %s", fingerprint)
	}
	for _, name := range skills {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_skills_optional (job_fingerprint, name) VALUES (?, ?)`,
			fingerprint, name,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert optional skill %s", name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit optional skills")
}

const jobColumns = `fingerprint, company, title, location, job_type, experience_level,
	industry, salary_low, salary_high, post_date, url, scraped_at,
	job_description, enhanced, enhanced_at`

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	if filter.EnhancedOnly {
		query += ` AND enhanced IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) RecentFingerprints(ctx context.Context, window time.Duration) ([]string, error) {
	return s.recentKeys(ctx, "fingerprint", window)
}

func (s *SQLiteStore) RecentURLs(ctx context.Context, window time.Duration) ([]string, error) {
	return s.recentKeys(ctx, "url", window)
}

func (s *SQLiteStore) recentKeys(ctx context.Context, column string, window time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+` FROM jobs WHERE created_at > ? AND `+column+` != ''`,
		cutoff,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: recent %ss", column)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", column)
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrapf(rows.Err(), "sqlite: recent %ss iterate", column)
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunSummary(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run summary %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}

func scanJob(row scannable) (*model.JobRecord, error) {
	var j model.JobRecord
	var postDate, url, desc, enhancedAt sql.NullString
	var enhancedJSON sql.NullString

	err := row.Scan(&j.Fingerprint, &j.Company, &j.Title, &j.Location, &j.JobType,
		&j.ExperienceLevel, &j.Industry, &j.SalaryLow, &j.SalaryHigh,
		&postDate, &url, &j.ScrapedAt, &desc, &enhancedJSON, &enhancedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	j.PostDate = postDate.String
	j.URL = url.String
	j.JobDescription = desc.String
	j.EnhancedAt = enhancedAt.String
	if enhancedJSON.Valid && enhancedJSON.String != "" {
		j.Enhanced = &model.EnhancedProfile{}
		if err := json.Unmarshal([]byte(enhancedJSON.String), j.Enhanced); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal enhanced profile")
		}
	}
	return &j, nil
}
