package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/domain/appraisal"
)

const sampleDirectory = `
employees:
  - id: emp-1
    userId: user-1
    name: Eden Employee
    managerId: emp-mgr
    reviewerId: emp-dir
  - id: emp-mgr
    userId: user-mgr
    name: Morgan Manager
    managerId: emp-dir
  - id: emp-dir
    userId: user-dir
    name: Dana Director
`

func actorFor(userID string) appraisal.Actor {
	return appraisal.Actor{UserID: userID}
}

func subject(employeeID string) *appraisal.Appraisal {
	return &appraisal.Appraisal{EmployeeID: employeeID}
}

func TestLoadFileDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDirectory), 0o600))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	mgr, err := d.GetManagerOf(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Morgan Manager", mgr.Name)

	_, err = d.GetReviewerOf(context.Background(), "emp-dir")
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	r := NewResolver(d)
	assert.True(t, r.Resolve(context.Background(), actorFor("user-dir"), subject("emp-1")).IsReviewer)
	assert.True(t, r.Resolve(context.Background(), actorFor("user-dir"), subject("emp-mgr")).IsSupervisor)
}

func TestParseYAMLRejectsBadEntries(t *testing.T) {
	_, err := ParseYAML([]byte("employees:\n  - name: nobody\n"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("employees:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
