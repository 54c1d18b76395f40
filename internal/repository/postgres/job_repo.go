package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"crparser/internal/domain"
	"crparser/internal/port"
)

type jobRepo struct {
	db *sqlx.DB
}

// NewJobRepo creates a PostgreSQL-backed JobRepository.
func NewJobRepo(db *sqlx.DB) port.JobRepository {
	return &jobRepo{db: db}
}

// jobRow mirrors parse_jobs with the JSONB header read back as text.
type jobRow struct {
	domain.Job
	HeaderText sql.NullString `db:"header_text"`
}

// tableRow mirrors parse_job_tables.
type tableRow struct {
	JobID              uuid.UUID `db:"job_id"`
	TableIndex         int       `db:"table_index"`
	PageNumber         int       `db:"page_number"`
	ExtractionAccuracy float64   `db:"extraction_accuracy"`
	RuleName           string    `db:"rule_name"`
	Content            string    `db:"content"`
}

const jobColumns = `id, status, file_name, object_key, callback_url, submitted_by,
	result_count, error_message, extraction_failed, landscape, created_at, updated_at`

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `INSERT INTO parse_jobs
		(id, status, file_name, object_key, callback_url, submitted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.FileName, job.ObjectKey, job.CallbackURL,
		job.SubmittedBy, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("jobRepo.Create: %w", err)
	}
	return nil
}

func (r *jobRepo) PutStatus(ctx context.Context, u domain.StatusUpdate) error {
	ts := u.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var (
		extractionFailed *bool
		landscape        *bool
		header           *string
	)
	if u.Result != nil {
		extractionFailed = &u.Result.ExtractionFailed
		landscape = &u.Result.Landscape
		raw, err := json.Marshal(u.Result.Header)
		if err != nil {
			return fmt.Errorf("jobRepo.PutStatus: encoding header: %w", err)
		}
		h := string(raw)
		header = &h
	}

	query := `UPDATE parse_jobs SET
		status = $2,
		result_count = COALESCE($3, result_count),
		error_message = $4,
		extraction_failed = COALESCE($5, extraction_failed),
		landscape = COALESCE($6, landscape),
		header = COALESCE($7::jsonb, header),
		updated_at = $8
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		u.JobID, u.Status, u.ResultCount, u.ErrorMessage,
		extractionFailed, landscape, header, ts.UTC())
	if err != nil {
		return fmt.Errorf("jobRepo.PutStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobRepo.PutStatus rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+jobColumns+`, header::text AS header_text FROM parse_jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("jobRepo.GetByID: %w", err)
	}
	job := row.Job
	if row.HeaderText.Valid {
		job.Header = json.RawMessage(row.HeaderText.String)
	}
	return &job, nil
}

func (r *jobRepo) SaveTables(ctx context.Context, jobID uuid.UUID, tables []domain.ProcessedTable) error {
	if len(tables) == 0 {
		return nil
	}
	rows := make([]tableRow, len(tables))
	for i, t := range tables {
		content, err := json.Marshal(t.Content)
		if err != nil {
			return fmt.Errorf("jobRepo.SaveTables: encoding table %d: %w", t.TableIndex, err)
		}
		rows[i] = tableRow{
			JobID:              jobID,
			TableIndex:         t.TableIndex,
			PageNumber:         t.PageNumber,
			ExtractionAccuracy: t.ExtractionAccuracy,
			RuleName:           t.RuleName,
			Content:            string(content),
		}
	}

	query := `INSERT INTO parse_job_tables
		(job_id, table_index, page_number, extraction_accuracy, rule_name, content)
		VALUES (:job_id, :table_index, :page_number, :extraction_accuracy, :rule_name, :content)
		ON CONFLICT (job_id, table_index) DO UPDATE SET
			page_number = EXCLUDED.page_number,
			extraction_accuracy = EXCLUDED.extraction_accuracy,
			rule_name = EXCLUDED.rule_name,
			content = EXCLUDED.content`

	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("jobRepo.SaveTables: %w", err)
	}
	return nil
}

func (r *jobRepo) ListTables(ctx context.Context, jobID uuid.UUID) ([]domain.ProcessedTable, error) {
	var rows []tableRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT job_id, table_index, page_number, extraction_accuracy, rule_name, content::text AS content
		 FROM parse_job_tables WHERE job_id = $1 ORDER BY table_index`, jobID)
	if err != nil {
		return nil, fmt.Errorf("jobRepo.ListTables: %w", err)
	}

	tables := make([]domain.ProcessedTable, len(rows))
	for i, row := range rows {
		var content []domain.Row
		if err := json.Unmarshal([]byte(row.Content), &content); err != nil {
			return nil, fmt.Errorf("jobRepo.ListTables: decoding table %d: %w", row.TableIndex, err)
		}
		tables[i] = domain.ProcessedTable{
			TableIndex:         row.TableIndex,
			PageNumber:         row.PageNumber,
			Content:            content,
			ExtractionAccuracy: row.ExtractionAccuracy,
			RuleName:           row.RuleName,
		}
	}
	return tables, nil
}

func (r *jobRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) ([]domain.Job, error) {
	var jobs []domain.Job
	err := r.db.SelectContext(ctx, &jobs,
		`UPDATE parse_jobs SET status = $1, error_message = $2, updated_at = NOW()
		 WHERE status = $3 AND updated_at < $4
		 RETURNING id, status, callback_url, error_message`,
		domain.JobStatusError, reason, domain.JobStatusProcessing, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("jobRepo.FailStale: %w", err)
	}
	return jobs, nil
}
