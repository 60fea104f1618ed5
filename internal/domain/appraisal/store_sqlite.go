package appraisal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const sqliteDate = "2006-01-02"

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLiteStore is the embedded store used for single-node deployments and tests.
// The handle is expected to allow a single connection, which serializes mutations.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, a *Appraisal) error {
	categories, err := json.Marshal(nonNilCategories(a.Categories))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appraisals (`+appraisalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EmployeeID, formatDate(a.Period.Start), formatDate(a.Period.End), a.Status, a.SupervisorID, a.ReviewerID,
		a.SupervisorApproval, a.ReviewerApproval, formatTimePtr(a.SupervisorApprovedAt), formatTimePtr(a.ReviewerApprovedAt), formatTimePtr(a.SubmittedAt),
		a.OverallRating, string(categories), textOrNil(a.EmployeeDetails), textOrNil(a.Achievements), textOrNil(a.DevelopmentPlans),
		a.EmployeeComments, a.ManagerComments, a.Version, a.CreatedBy, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert appraisal: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Appraisal, error) {
	return s.load(ctx, s.db, id)
}

func (s *SQLiteStore) Mutate(ctx context.Context, id string, fn MutateFunc) (Appraisal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Appraisal{}, err
	}
	defer func() { _ = tx.Rollback() }()

	a, err := s.load(ctx, tx, id)
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
	res, err := tx.ExecContext(ctx, `
		UPDATE appraisals
		SET status = ?, supervisor_approval = ?, reviewer_approval = ?,
			supervisor_approved_at = ?, reviewer_approved_at = ?, submitted_at = ?,
			overall_rating = ?, categories = ?, employee_details = ?, achievements = ?,
			development_plans = ?, employee_comments = ?, manager_comments = ?,
			version = ?, updated_at = ?, period_start = ?, period_end = ?
		WHERE id = ? AND version = ?`,
		a.Status, a.SupervisorApproval, a.ReviewerApproval,
		formatTimePtr(a.SupervisorApprovedAt), formatTimePtr(a.ReviewerApprovedAt), formatTimePtr(a.SubmittedAt),
		a.OverallRating, string(categories), textOrNil(a.EmployeeDetails), textOrNil(a.Achievements),
		textOrNil(a.DevelopmentPlans), a.EmployeeComments, a.ManagerComments,
		a.Version, formatTime(a.UpdatedAt), formatDate(a.Period.Start), formatDate(a.Period.End),
		a.ID, oldVersion)
	if err != nil {
		return Appraisal{}, fmt.Errorf("update appraisal: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Appraisal{}, err
	} else if n == 0 {
		return Appraisal{}, ErrStaleVersion
	}

	for _, e := range a.Comments.Since(oldSeq) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO appraisal_comments (id, appraisal_id, seq, role, action, author_id, author_name, via_override, comment_text, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, a.ID, e.Seq, e.Role, e.Action, e.AuthorID, e.AuthorName, boolToInt(e.ViaOverride), e.CommentText, formatTime(e.Timestamp)); err != nil {
			return Appraisal{}, fmt.Errorf("append comment %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Appraisal{}, err
	}
	return a, nil
}

func (s *SQLiteStore) load(ctx context.Context, q sqlQuerier, id string) (Appraisal, error) {
	var (
		a                                           Appraisal
		start, end, createdAt, updatedAt            string
		supervisorAt, reviewerAt, submittedAt       sql.NullString
		categories                                  string
		details, achievements, developmentPlansText sql.NullString
	)
	err := q.QueryRowContext(ctx, "SELECT "+appraisalColumns+" FROM appraisals WHERE id = ?", id).Scan(
		&a.ID, &a.EmployeeID, &start, &end, &a.Status, &a.SupervisorID, &a.ReviewerID,
		&a.SupervisorApproval, &a.ReviewerApproval, &supervisorAt, &reviewerAt, &submittedAt,
		&a.OverallRating, &categories, &details, &achievements, &developmentPlansText,
		&a.EmployeeComments, &a.ManagerComments, &a.Version, &a.CreatedBy, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Appraisal{}, ErrNotFound
	}
	if err != nil {
		return Appraisal{}, err
	}

	if a.Period.Start, err = parseDate(start); err != nil {
		return Appraisal{}, err
	}
	if a.Period.End, err = parseDate(end); err != nil {
		return Appraisal{}, err
	}
	if a.SupervisorApprovedAt, err = parseTimePtr(supervisorAt); err != nil {
		return Appraisal{}, err
	}
	if a.ReviewerApprovedAt, err = parseTimePtr(reviewerAt); err != nil {
		return Appraisal{}, err
	}
	if a.SubmittedAt, err = parseTimePtr(submittedAt); err != nil {
		return Appraisal{}, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return Appraisal{}, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Appraisal{}, err
	}
	if err := json.Unmarshal([]byte(categories), &a.Categories); err != nil {
		return Appraisal{}, fmt.Errorf("decode categories: %w", err)
	}
	a.EmployeeDetails = rawFromText(details)
	a.Achievements = rawFromText(achievements)
	a.DevelopmentPlans = rawFromText(developmentPlansText)

	rows, err := q.QueryContext(ctx, "SELECT "+commentColumns+" FROM appraisal_comments WHERE appraisal_id = ? ORDER BY seq", id)
	if err != nil {
		return Appraisal{}, err
	}
	defer rows.Close()

	var entries []CommentEntry
	for rows.Next() {
		var (
			e         CommentEntry
			via       int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.Role, &e.Action, &e.AuthorID, &e.AuthorName, &via, &e.CommentText, &createdAt); err != nil {
			return Appraisal{}, err
		}
		e.ViaOverride = via != 0
		if e.Timestamp, err = parseTime(createdAt); err != nil {
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

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sqliteDate)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(sqliteDate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func textOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func rawFromText(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
