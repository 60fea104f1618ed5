package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/platform/db"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	require.NoError(t, db.MigrateSQLite(context.Background(), conn))
	t.Cleanup(func() { _ = conn.Close() })
	return New(NewSQLiteStore(conn))
}

func TestRecordAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "u1", "appraisal.submit", EntityAppraisal, "a1", "req-1", "127.0.0.1", map[string]string{"status": "draft"}, map[string]string{"status": "submitted"}))
	require.NoError(t, svc.Record(ctx, "u2", "appraisal.approve", EntityAppraisal, "a1", "req-2", "127.0.0.1", nil, nil))
	require.NoError(t, svc.Record(ctx, "u2", "appraisal.approve", EntityAppraisal, "a2", "req-3", "127.0.0.1", nil, nil))

	events, err := svc.List(ctx, Filter{EntityType: EntityAppraisal, EntityID: "a1"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	var submit Event
	for _, evt := range events {
		if evt.Action == "appraisal.submit" {
			submit = evt
		}
	}
	assert.Equal(t, "u1", submit.ActorID)
	assert.JSONEq(t, `{"status":"draft"}`, string(submit.Before))
	assert.JSONEq(t, `{"status":"submitted"}`, string(submit.After))

	byActor, err := svc.List(ctx, Filter{ActorUser: "u2"}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, byActor, 1)
}

func TestBuildQueryPlaceholders(t *testing.T) {
	query, args := buildQuery(Filter{Action: "x", EntityID: "y"}, func(n int) string { return "$" + string(rune('0'+n)) })
	assert.Contains(t, query, "action = $1")
	assert.Contains(t, query, "entity_id = $2")
	assert.Equal(t, []any{"x", "y"}, args)
}
