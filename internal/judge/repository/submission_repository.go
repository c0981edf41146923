package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// SubmissionRecord is one graded submission row.
type SubmissionRecord struct {
	SubmissionID    string
	UserID          string
	QuestionID      string
	Language        string
	Status          model.Status
	ExecutionTime   float64
	ExecutionMemory int64
	CorrectCases    int
	TotalCases      int
	SourceKey       string
	ResultJSON      string
	CreatedAt       time.Time
	FinishedAt      *time.Time
}

// SubmissionRepository persists graded submissions.
type SubmissionRepository interface {
	CreatePending(ctx context.Context, tx db.Transaction, record *SubmissionRecord) error
	SaveVerdict(ctx context.Context, tx db.Transaction, res *model.ExecutionResult) error
	FindByID(ctx context.Context, tx db.Transaction, submissionID string) (*SubmissionRecord, error)
}

// StatusPending is the row status between acceptance and verdict.
const StatusPending = "pending"

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
// The DSN must set parseTime=true.
type MySQLSubmissionRepository struct {
	db db.Database
}

// NewSubmissionRepository creates a submission repository.
func NewSubmissionRepository(database db.Database) *MySQLSubmissionRepository {
	return &MySQLSubmissionRepository{db: database}
}

const submissionColumns = "submission_id, user_id, question_id, language, status, execution_time, execution_memory, correct_cases, total_cases, source_key, result_json, created_at, finished_at"

// CreatePending inserts a pending row.
func (r *MySQLSubmissionRepository) CreatePending(ctx context.Context, tx db.Transaction, record *SubmissionRecord) error {
	if record == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("submission record is nil")
	}
	if record.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if record.UserID == "" {
		return appErr.ValidationError("user_id", "required")
	}

	query := `
		INSERT INTO submissions
		(submission_id, user_id, question_id, language, status, source_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
		record.SubmissionID,
		record.UserID,
		record.QuestionID,
		record.Language,
		StatusPending,
		record.SourceKey,
		createdAt,
	)
	if err != nil {
		if key, dup := db.UniqueViolation(err); dup {
			return appErr.Wrapf(err, appErr.RecordAlreadyExists, "submission already exists (%s)", key)
		}
		return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
	}
	return nil
}

// SaveVerdict stores the final verdict with the peak time and memory over
// the executed test cases.
func (r *MySQLSubmissionRepository) SaveVerdict(ctx context.Context, tx db.Transaction, res *model.ExecutionResult) error {
	if res == nil || res.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	payload, err := res.Encode()
	if err != nil {
		return err
	}

	query := `
		UPDATE submissions
		SET status = ?, execution_time = ?, execution_memory = ?, correct_cases = ?,
			total_cases = ?, result_json = ?, finished_at = ?
		WHERE submission_id = ?
	`
	err = db.ExecAffectingOne(ctx, db.GetQuerier(r.db, tx), query,
		string(res.Status),
		res.MaxTime(),
		res.MaxMemory(),
		res.CorrectTestCases,
		res.TotalTestCases,
		payload,
		time.Now(),
		res.SubmissionID,
	)
	if db.IsNoRows(err) {
		return appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", res.SubmissionID)
	}
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "save verdict failed")
	}
	return nil
}

// FindByID retrieves a submission by id.
func (r *MySQLSubmissionRepository) FindByID(ctx context.Context, tx db.Transaction, submissionID string) (*SubmissionRecord, error) {
	if submissionID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	query := "SELECT " + submissionColumns + " FROM submissions WHERE submission_id = ?"
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, query, submissionID)

	var (
		rec        SubmissionRecord
		status     string
		resultJSON sql.NullString
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&rec.SubmissionID,
		&rec.UserID,
		&rec.QuestionID,
		&rec.Language,
		&status,
		&rec.ExecutionTime,
		&rec.ExecutionMemory,
		&rec.CorrectCases,
		&rec.TotalCases,
		&rec.SourceKey,
		&resultJSON,
		&rec.CreatedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", submissionID)
	}
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load submission failed")
	}
	rec.Status = model.Status(status)
	rec.ResultJSON = resultJSON.String
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	return &rec, nil
}
