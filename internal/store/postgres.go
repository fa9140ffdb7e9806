package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jobsift/jobsift/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute
// a pgxmock pool through it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	enhanced         JSONB,
	enhanced_at      TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
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
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_url ON jobs(url);
CREATE INDEX IF NOT EXISTS idx_skills_required_job ON job_skills_required(job_fingerprint);
CREATE INDEX IF NOT EXISTS idx_skills_optional_job ON job_skills_optional(job_fingerprint);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertJob(ctx context.Context, job *model.JobRecord) error {
	var enhancedJSON []byte
	if job.Enhanced != nil {
		b, err := json.Marshal(job.Enhanced)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal enhanced profile")
		}
		enhancedJSON = b
	}

	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (fingerprint, company, title, location, job_type, experience_level,
		                   industry, salary_low, salary_high, post_date, url, scraped_at,
		                   job_description, enhanced, enhanced_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (fingerprint) DO UPDATE SET
		   company = EXCLUDED.company, title = EXCLUDED.title, location = EXCLUDED.location,
		   job_type = EXCLUDED.job_type, experience_level = EXCLUDED.experience_level,
		   industry = EXCLUDED.industry, salary_low = EXCLUDED.salary_low,
		   salary_high = EXCLUDED.salary_high, post_date = EXCLUDED.post_date,
		   url = EXCLUDED.url, scraped_at = EXCLUDED.scraped_at,
		   job_description = EXCLUDED.job_description, enhanced = EXCLUDED.enhanced,
		   enhanced_at = EXCLUDED.enhanced_at, updated_at = EXCLUDED.updated_at`,
		job.Fingerprint, job.Company, job.Title, job.Location, job.JobType,
		job.ExperienceLevel, job.Industry, job.SalaryLow, job.SalaryHigh,
		job.PostDate, job.URL, job.ScrapedAt, job.JobDescription,
		enhancedJSON, job.EnhancedAt, now, now,
	)
	return eris.Wrapf(err, "postgres: upsert job %s", job.Fingerprint)
}

func (s *PostgresStore) ReplaceRequiredSkills(ctx context.Context, fingerprint string, skills []model.Skill) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM job_skills_required WHERE job_fingerprint = $1`, fingerprint,
	); err != nil {
		return eris.Wrapf(err, "postgres: clear required skills %s", fingerprint)
	}
	for _, sk := range skills {
		if _, err := tx.Exec(ctx,
			`INSERT INTO job_skills_required (job_fingerprint, name, level) VALUES ($1, $2, $3)`,
			fingerprint, sk.Name, sk.Level,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert required skill %s", sk.Name)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit required skills")
}

func (s *PostgresStore) ReplaceOptionalSkills(ctx context.Context, fingerprint string, skills []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM job_skills_optional WHERE job_fingerprint = $1`, fingerprint,
	); err != nil {
		return eris.Wrapf(err, "postgres: clear optional skills %s", fingerprint)
	}
	for _, name := range skills {
		if _, err := tx.Exec(ctx,
			`INSERT INTO job_skills_optional (job_fingerprint, name) VALUES ($1, $2)`,
			fingerprint, name,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert optional skill %s", name)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit optional skills")
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.JobRecord, error) {
	query := `SELECT fingerprint, company, title, location, job_type, experience_level,
	                 industry, salary_low, salary_high, post_date, url, scraped_at,
	                 job_description, enhanced, enhanced_at
	          FROM jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Company != "" {
		query += fmt.Sprintf(` AND company = $%d`, argIdx)
		args = append(args, filter.Company)
		argIdx++
	}
	if filter.EnhancedOnly {
		query += ` AND enhanced IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.JobRecord
	for rows.Next() {
		var j model.JobRecord
		var postDate, url, desc, enhancedAt *string
		var enhancedJSON []byte

		if err := rows.Scan(&j.Fingerprint, &j.Company, &j.Title, &j.Location, &j.JobType,
			&j.ExperienceLevel, &j.Industry, &j.SalaryLow, &j.SalaryHigh,
			&postDate, &url, &j.ScrapedAt, &desc, &enhancedJSON, &enhancedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		if postDate != nil {
			j.PostDate = *postDate
		}
		if url != nil {
			j.URL = *url
		}
		if desc != nil {
			j.JobDescription = *desc
		}
		if enhancedAt != nil {
			j.EnhancedAt = *enhancedAt
		}
		if len(enhancedJSON) > 0 {
			j.Enhanced = &model.EnhancedProfile{}
			if err := json.Unmarshal(enhancedJSON, j.Enhanced); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal enhanced profile")
			}
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) RecentFingerprints(ctx context.Context, window time.Duration) ([]string, error) {
	return s.recentKeys(ctx, "fingerprint", window)
}

func (s *PostgresStore) RecentURLs(ctx context.Context, window time.Duration) ([]string, error) {
	return s.recentKeys(ctx, "url", window)
}

func (s *PostgresStore) recentKeys(ctx context.Context, column string, window time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.pool.Query(ctx,
		`SELECT `+column+` FROM jobs WHERE created_at > $1 AND `+column+` != ''`,
		cutoff,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: recent %ss", column)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", column)
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrapf(rows.Err(), "postgres: recent %ss iterate", column)
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunSummary(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run summary %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var summaryJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, summary, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("run not found: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if len(summaryJSON) > 0 {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, summary, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var summaryJSON []byte

		if err := rows.Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(summaryJSON) > 0 {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// Open picks a backend from the driver name.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	case "sqlite", "":
		return NewSQLite(databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
