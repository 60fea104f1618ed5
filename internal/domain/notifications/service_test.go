package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/directory"
)

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, _, to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func testDirectory(t *testing.T) directory.Directory {
	t.Helper()
	d, err := directory.ParseYAML([]byte(`
employees:
  - {id: emp-1, userId: u1, email: eden@example.com, managerId: emp-mgr, reviewerId: emp-dir}
  - {id: emp-mgr, userId: u2, email: morgan@example.com}
  - {id: emp-dir, userId: u3, email: dana@example.com}
`))
	require.NoError(t, err)
	return d
}

func result(prev, status, acted string) appraisal.Result {
	return appraisal.Result{
		Appraisal:      appraisal.Appraisal{ID: "a1", EmployeeID: "emp-1", Status: status},
		PreviousStatus: prev,
		ActedRole:      acted,
		Entry:          &appraisal.CommentEntry{CommentText: "clarify achievement #2"},
	}
}

func TestPlanEditorOfRecord(t *testing.T) {
	cases := []struct {
		name      string
		res       appraisal.Result
		recipient string
		msgType   string
	}{
		{"submit", result(appraisal.StatusDraft, appraisal.StatusSubmitted, appraisal.RoleEmployee), appraisal.RoleSupervisor, TypeAppraisalSubmitted},
		{"supervisor approve", result(appraisal.StatusSubmitted, appraisal.StatusSupervisorApproved, appraisal.RoleSupervisor), appraisal.RoleReviewer, TypeAwaitingFinalReview},
		{"supervisor request changes", result(appraisal.StatusSubmitted, appraisal.StatusRevisionRequested, appraisal.RoleSupervisor), appraisal.RoleEmployee, TypeChangesRequested},
		{"reviewer request changes", result(appraisal.StatusSupervisorApproved, appraisal.StatusRevisionRequested, appraisal.RoleReviewer), appraisal.RoleSupervisor, TypeRatingsReopened},
		{"final approve", result(appraisal.StatusSupervisorApproved, appraisal.StatusCompleted, appraisal.RoleReviewer), appraisal.RoleEmployee, TypeAppraisalCompleted},
		{"cancel", result(appraisal.StatusDraft, appraisal.StatusCancelled, appraisal.RoleReviewer), appraisal.RoleEmployee, TypeAppraisalCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := Plan(tc.res)
			require.True(t, ok)
			assert.Equal(t, tc.recipient, msg.RecipientRole)
			assert.Equal(t, tc.msgType, msg.Type)
		})
	}

	_, ok := Plan(result(appraisal.StatusSubmitted, appraisal.StatusSubmitted, appraisal.RoleSupervisor))
	assert.False(t, ok, "comments do not notify")
}

func TestNotifyResolvesThroughHierarchy(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(testDirectory(t), mailer)

	require.NoError(t, svc.Notify(context.Background(), result(appraisal.StatusDraft, appraisal.StatusSubmitted, appraisal.RoleEmployee)))
	require.NoError(t, svc.Notify(context.Background(), result(appraisal.StatusSubmitted, appraisal.StatusSupervisorApproved, appraisal.RoleSupervisor)))
	require.NoError(t, svc.Notify(context.Background(), result(appraisal.StatusSubmitted, appraisal.StatusRevisionRequested, appraisal.RoleSupervisor)))

	require.Len(t, mailer.sent, 3)
	assert.Equal(t, "morgan@example.com", mailer.sent[0].to)
	assert.Equal(t, "dana@example.com", mailer.sent[1].to)
	assert.Equal(t, "eden@example.com", mailer.sent[2].to)
	assert.Contains(t, mailer.sent[2].body, "clarify achievement #2")
}

func TestNotifyUnknownRecipientIsSkipped(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(testDirectory(t), mailer)
	res := result(appraisal.StatusDraft, appraisal.StatusSubmitted, appraisal.RoleEmployee)
	res.Appraisal.SupervisorID = "emp-gone"

	assert.NoError(t, svc.Notify(context.Background(), res))
	assert.Empty(t, mailer.sent)
}
