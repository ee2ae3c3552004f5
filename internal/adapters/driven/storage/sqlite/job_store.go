package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// JobStore implements driven.JobStore on the jobs table.
type JobStore struct {
	store *Store
}

var _ driven.JobStore = (*JobStore)(nil)

const jobColumns = `id, profile, provider, model_name, model_dim, vector_db, collection, truncate,
	status, phase, error, files_total, files_done, pages_total, pages_done, chunks_done,
	current_file, chunks_per_min, created_at, updated_at`

// terminalStatuses is the SQL list of statuses no update may leave.
var terminalStatuses = fmt.Sprintf("('%s','%s','%s')",
	domain.JobCompleted, domain.JobFailed, domain.JobCanceled)

// CreateJob inserts a new job.
func (s *JobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}
	created := job.CreatedAt
	if created.IsZero() {
		created = s.store.now()
	}
	updated := job.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := s.store.db.ExecContext(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Profile, job.Provider, job.ModelName, job.ModelDim, job.VectorDB,
		job.Collection, boolToInt(job.Truncate), string(job.Status), string(job.Phase), job.Error,
		job.FilesTotal, job.FilesDone, job.PagesTotal, job.PagesDone, job.ChunksDone,
		job.CurrentFile, job.ChunksPerMin, formatTime(created), formatTime(updated))
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id.
func (s *JobStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// UpdateJob patches a job unless it is already terminal.
func (s *JobStore) UpdateJob(ctx context.Context, id string, update domain.JobUpdate) error {
	if update.Empty() {
		_, err := s.GetJob(ctx, id)
		return err
	}

	var status, phase any
	if update.Status != nil {
		status = string(*update.Status)
	}
	if update.Phase != nil {
		phase = string(*update.Phase)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = COALESCE(?, status),
			phase = COALESCE(?, phase),
			error = COALESCE(?, error),
			files_total = COALESCE(?, files_total),
			files_done = COALESCE(?, files_done),
			pages_total = COALESCE(?, pages_total),
			pages_done = COALESCE(?, pages_done),
			chunks_done = COALESCE(?, chunks_done),
			current_file = COALESCE(?, current_file),
			chunks_per_min = COALESCE(?, chunks_per_min),
			updated_at = ?
		WHERE id = ? AND status NOT IN `+terminalStatuses,
		status, phase, optional(update.Error),
		optional(update.FilesTotal), optional(update.FilesDone),
		optional(update.PagesTotal), optional(update.PagesDone),
		optional(update.ChunksDone), optional(update.CurrentFile),
		optional(update.ChunksPerMin), formatTime(s.store.now()), id)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either missing or terminal; only the former is an error.
		_, err := s.GetJob(ctx, id)
		return err
	}
	return nil
}

// FinishJob moves a job to a terminal status.
func (s *JobStore) FinishJob(ctx context.Context, id string, status domain.JobStatus, errMsg string, force bool) (bool, error) {
	if !status.IsTerminal() {
		return false, domain.ErrInvalidInput
	}
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, phase = ?, error = ?, updated_at = ?
		WHERE id = ? AND (? = 1 OR status NOT IN `+terminalStatuses+`)`,
		string(status), string(domain.PhaseFinished), errMsg, formatTime(s.store.now()),
		id, boolToInt(force))
	if err != nil {
		return false, fmt.Errorf("finishing job: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if _, err := s.GetJob(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// CancelActive cancels the queued and running jobs of a profile.
func (s *JobStore) CancelActive(ctx context.Context, profile string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		UPDATE jobs SET status = ?, phase = ?, error = ?, updated_at = ?
		WHERE profile = ? AND status IN (?, ?)
		RETURNING id`,
		string(domain.JobCanceled), string(domain.PhaseFinished), domain.ErrCanceledByUser.Error(),
		formatTime(s.store.now()), profile, string(domain.JobQueued), string(domain.JobRunning))
	if err != nil {
		return nil, fmt.Errorf("canceling jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning canceled job: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating canceled jobs: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListJobs returns jobs newest first.
func (s *JobStore) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	if filter.Profile != "" {
		where = append(where, "profile = ?")
		args = append(args, filter.Profile)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	q := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job              domain.Job
		status, phase    string
		truncate         int
		created, updated string
	)
	err := row.Scan(
		&job.ID, &job.Profile, &job.Provider, &job.ModelName, &job.ModelDim, &job.VectorDB,
		&job.Collection, &truncate, &status, &phase, &job.Error,
		&job.FilesTotal, &job.FilesDone, &job.PagesTotal, &job.PagesDone, &job.ChunksDone,
		&job.CurrentFile, &job.ChunksPerMin, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	job.Truncate = truncate != 0
	job.Status = domain.JobStatus(status)
	job.Phase = domain.JobPhase(phase)
	job.CreatedAt = parseTime(created)
	job.UpdatedAt = parseTime(updated)
	return &job, nil
}
