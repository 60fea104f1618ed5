package appraisal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/platform/db"
)

func TestPostgresStoreMutate(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool))

	store := NewPostgresStore(pool)
	t.Cleanup(store.Close)

	svc := NewService(store, &stubResolver{})
	a := createDraft(t, svc)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM appraisals WHERE id = $1", a.ID)
	})

	_, err = svc.Submit(ctx, a.ID, employee, a.Version)
	require.NoError(t, err)
	res, err := svc.RecordAction(ctx, a.ID, supervisor, ActionRequest{Role: RoleSupervisor, Action: ActionComment, Comment: "first pass"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Appraisal.Version)

	loaded, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, loaded.Status)
	assert.Equal(t, 1, loaded.Comments.Len(RoleSupervisor))
	assert.WithinDuration(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), loaded.Period.Start, 24*time.Hour)

	_, err = store.Mutate(ctx, a.ID, func(cur *Appraisal) error { return ErrInvalidTransition })
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = store.Get(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}
