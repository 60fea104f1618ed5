package appraisal

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/platform/db"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	require.NoError(t, db.MigrateSQLite(context.Background(), conn))
	s := NewSQLiteStore(conn)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	approved := testNow.Add(-time.Hour)
	a := draftAppraisal()
	a.ID = "round-trip"
	a.Version = 1
	a.SupervisorApprovedAt = &approved
	a.EmployeeDetails = json.RawMessage(`{"team":"platform"}`)
	a.CreatedAt = testNow
	a.UpdatedAt = testNow
	require.NoError(t, s.Create(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Period, got.Period)
	assert.Equal(t, a.Categories, got.Categories)
	require.NotNil(t, got.SupervisorApprovedAt)
	assert.True(t, approved.Equal(*got.SupervisorApprovedAt))
	assert.Nil(t, got.ReviewerApprovedAt)
	assert.JSONEq(t, `{"team":"platform"}`, string(got.EmployeeDetails))
	assert.Nil(t, got.Achievements)
}

func TestSQLiteStoreMutatePersistsLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := draftAppraisal()
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = testNow, testNow
	require.NoError(t, s.Create(ctx, a))

	updated, err := s.Mutate(ctx, a.ID, func(cur *Appraisal) error {
		_, err := cur.Comments.Append(RoleReviewer, CommentEntry{AuthorID: "rev", Action: ActionComment, CommentText: "noted", ViaOverride: true, Timestamp: testNow})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	entries := got.Comments.List(RoleReviewer)
	require.Len(t, entries, 1)
	assert.Equal(t, "noted", entries[0].CommentText)
	assert.True(t, entries[0].ViaOverride)
	assert.True(t, testNow.Equal(entries[0].Timestamp))
}

func TestSQLiteStoreMutateErrorRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := draftAppraisal()
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = testNow, testNow
	require.NoError(t, s.Create(ctx, a))

	boom := errors.New("boom")
	_, err := s.Mutate(ctx, a.ID, func(cur *Appraisal) error {
		cur.Status = StatusCancelled
		_, _ = cur.Comments.Append(RoleSupervisor, CommentEntry{Action: ActionComment})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Zero(t, got.Comments.Len(RoleSupervisor))

	_, err = s.Mutate(ctx, "missing", func(*Appraisal) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}
