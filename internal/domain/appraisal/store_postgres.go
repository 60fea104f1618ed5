package appraisal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appraisalColumns = `id, employee_id, period_start, period_end, status, supervisor_id, reviewer_id,
  supervisor_approval, reviewer_approval, supervisor_approved_at, reviewer_approved_at, submitted_at,
  overall_rating, categories, employee_details, achievements, development_plans,
  employee_comments, manager_comments, version, created_by, created_at, updated_at`

const commentColumns = `id, seq, role, action, author_id, author_name, via_override, comment_text, created_at`

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists appraisals with row locks for mutations.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.DB.Close()
}

func (s *PostgresStore) Create(ctx context.Context, a *Appraisal) error {
	categories, err := json.Marshal(nonNilCategories(a.Categories))
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO appraisals (`+appraisalColumns+`)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
  `, a.ID, a.EmployeeID, pgDate(a.Period.Start), pgDate(a.Period.End), a.Status, a.SupervisorID, a.ReviewerID,
		a.SupervisorApproval, a.ReviewerApproval, a.SupervisorApprovedAt, a.ReviewerApprovedAt, a.SubmittedAt,
		a.OverallRating, categories, rawOrNil(a.EmployeeDetails), rawOrNil(a.Achievements), rawOrNil(a.DevelopmentPlans),
		a.EmployeeComments, a.ManagerComments, a.Version, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Appraisal, error) {
	return s.load(ctx, s.DB, "SELECT "+appraisalColumns+" FROM appraisals WHERE id = $1", id)
}

func (s *PostgresStore) Mutate(ctx context.Context, id string, fn MutateFunc) (Appraisal, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Appraisal{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a, err := s.load(ctx, tx, "SELECT "+appraisalColumns+" FROM appraisals WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return Appraisal{}, err
	}
	oldVersion := a.Version
	oldSeq := a.Comments.Seq()

	if err := fn(&a); err != nil {
		return Appraisal{}, err
	}
	a.Version = oldVersion + 1

	categories, err := json.Marshal(nonNilCategories(a.Categories))
	if err != nil {
		return Appraisal{}, err
	}
	tag, err := tx.Exec(ctx, `
    UPDATE appraisals
    SET status = $1, supervisor_approval = $2, reviewer_approval = $3,
        supervisor_approved_at = $4, reviewer_approved_at = $5, submitted_at = $6,
        overall_rating = $7, categories = $8, employee_details = $9, achievements = $10,
        development_plans = $11, employee_comments = $12, manager_comments = $13,
        version = $14, updated_at = $15, period_start = $16, period_end = $17
    WHERE id = $18 AND version = $19
  `, a.Status, a.SupervisorApproval, a.ReviewerApproval,
		a.SupervisorApprovedAt, a.ReviewerApprovedAt, a.SubmittedAt,
		a.OverallRating, categories, rawOrNil(a.EmployeeDetails), rawOrNil(a.Achievements),
		rawOrNil(a.DevelopmentPlans), a.EmployeeComments, a.ManagerComments,
		a.Version, a.UpdatedAt, pgDate(a.Period.Start), pgDate(a.Period.End),
		a.ID, oldVersion)
	if err != nil {
		return Appraisal{}, err
	}
	if tag.RowsAffected() == 0 {
		return Appraisal{}, ErrStaleVersion
	}

	for _, e := range a.Comments.Since(oldSeq) {
		if _, err := tx.Exec(ctx, `
      INSERT INTO appraisal_comments (id, appraisal_id, seq, role, action, author_id, author_name, via_override, comment_text, created_at)
      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, e.ID, a.ID, e.Seq, e.Role, e.Action, e.AuthorID, e.AuthorName, e.ViaOverride, e.CommentText, e.Timestamp); err != nil {
			return Appraisal{}, fmt.Errorf("append comment %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Appraisal{}, err
	}
	return a, nil
}

func (s *PostgresStore) load(ctx context.Context, q pgQuerier, query, id string) (Appraisal, error) {
	var (
		a                                     Appraisal
		start, end                            *time.Time
		categories                            []byte
		details, achievements, developmentRaw []byte
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.EmployeeID, &start, &end, &a.Status, &a.SupervisorID, &a.ReviewerID,
		&a.SupervisorApproval, &a.ReviewerApproval, &a.SupervisorApprovedAt, &a.ReviewerApprovedAt, &a.SubmittedAt,
		&a.OverallRating, &categories, &details, &achievements, &developmentRaw,
		&a.EmployeeComments, &a.ManagerComments, &a.Version, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appraisal{}, ErrNotFound
	}
	if err != nil {
		return Appraisal{}, err
	}
	if start != nil {
		a.Period.Start = *start
	}
	if end != nil {
		a.Period.End = *end
	}
	if err := json.Unmarshal(categories, &a.Categories); err != nil {
		return Appraisal{}, fmt.Errorf("decode categories: %w", err)
	}
	a.EmployeeDetails = details
	a.Achievements = achievements
	a.DevelopmentPlans = developmentRaw

	rows, err := q.Query(ctx, "SELECT "+commentColumns+" FROM appraisal_comments WHERE appraisal_id = $1 ORDER BY seq", id)
	if err != nil {
		return Appraisal{}, err
	}
	defer rows.Close()

	var entries []CommentEntry
	for rows.Next() {
		var e CommentEntry
		if err := rows.Scan(&e.ID, &e.Seq, &e.Role, &e.Action, &e.AuthorID, &e.AuthorName, &e.ViaOverride, &e.CommentText, &e.Timestamp); err != nil {
			return Appraisal{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Appraisal{}, err
	}
	if a.Comments, err = NewLedger(entries); err != nil {
		return Appraisal{}, err
	}
	return a, nil
}

func pgDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nonNilCategories(categories []Category) []Category {
	if categories == nil {
		return []Category{}
	}
	return categories
}
