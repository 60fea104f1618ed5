package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directoryServer(t *testing.T, failing *atomic.Bool, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	employees := map[string]Employee{
		"emp-1":   {ID: "emp-1", UserID: "user-1", ManagerID: "emp-mgr"},
		"emp-mgr": {ID: "emp-mgr", UserID: "user-mgr"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		emp, ok := employees[strings.TrimPrefix(r.URL.Path, "/employees/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(emp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPDirectoryLookups(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	srv := directoryServer(t, &failing, &hits)
	d := NewHTTPDirectory(HTTPConfig{BaseURL: srv.URL + "/", Timeout: time.Second, BreakerFailures: 2, BreakerCooldown: time.Minute})
	ctx := context.Background()

	emp, err := d.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", emp.UserID)

	mgr, err := d.GetManagerOf(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "user-mgr", mgr.UserID)

	_, err = d.GetReviewerOf(ctx, "emp-1")
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestHTTPDirectoryNotFoundDoesNotTripBreaker(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	srv := directoryServer(t, &failing, &hits)
	d := NewHTTPDirectory(HTTPConfig{BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := d.GetEmployee(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrEmployeeNotFound)
	}
	_, err := d.GetEmployee(context.Background(), "emp-1")
	assert.NoError(t, err)
}

func TestHTTPDirectoryBreakerOpens(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	srv := directoryServer(t, &failing, &hits)
	d := NewHTTPDirectory(HTTPConfig{BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute})
	failing.Store(true)

	for i := 0; i < 2; i++ {
		_, err := d.GetEmployee(context.Background(), "emp-1")
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	before := hits.Load()

	_, err := d.GetEmployee(context.Background(), "emp-1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, before, hits.Load(), "open breaker must short-circuit")

	r := NewResolver(d)
	caps := r.Resolve(context.Background(), actorFor("user-mgr"), subject("emp-1"))
	assert.False(t, caps.IsSupervisor)
	assert.True(t, caps.DirectoryUnavailable)
}
