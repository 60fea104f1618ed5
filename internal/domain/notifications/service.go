package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/directory"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Message is a notice addressed to whoever must act next on an appraisal.
type Message struct {
	Type          string
	RecipientRole string
	Subject       string
	Body          string
}

type Service struct {
	dir         directory.Directory
	Mailer      Mailer
	DefaultFrom string
}

func New(dir directory.Directory, mailer Mailer) *Service {
	return &Service{dir: dir, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Plan decides who becomes the editor of record after an accepted mutation.
// Comments and draft edits produce no notice.
func Plan(res appraisal.Result) (Message, bool) {
	a := res.Appraisal
	if a.Status == res.PreviousStatus {
		return Message{}, false
	}
	ref := fmt.Sprintf("appraisal %s (employee %s)", a.ID, a.EmployeeID)
	switch a.Status {
	case appraisal.StatusSubmitted:
		return Message{TypeAppraisalSubmitted, appraisal.RoleSupervisor, "Appraisal submitted for your review", ref + " was submitted and is waiting for your ratings."}, true
	case appraisal.StatusSupervisorApproved:
		return Message{TypeAwaitingFinalReview, appraisal.RoleReviewer, "Appraisal ready for final review", ref + " was approved by the supervisor and needs your final decision."}, true
	case appraisal.StatusRevisionRequested:
		if res.ActedRole == appraisal.RoleReviewer {
			return Message{TypeRatingsReopened, appraisal.RoleSupervisor, "Reviewer requested changes", ref + " was returned by the reviewer: " + entryText(res)}, true
		}
		return Message{TypeChangesRequested, appraisal.RoleEmployee, "Changes requested on your appraisal", ref + " needs changes: " + entryText(res)}, true
	case appraisal.StatusCompleted:
		return Message{TypeAppraisalCompleted, appraisal.RoleEmployee, "Your appraisal is complete", ref + " received final approval."}, true
	case appraisal.StatusCancelled:
		return Message{TypeAppraisalCancelled, appraisal.RoleEmployee, "Your appraisal was cancelled", ref + " was cancelled: " + entryText(res)}, true
	}
	return Message{}, false
}

func entryText(res appraisal.Result) string {
	if res.Entry == nil {
		return ""
	}
	return res.Entry.CommentText
}

// Notify emails the next editor of record. Delivery problems are logged, not returned,
// unless the recipient could not be resolved at all.
func (s *Service) Notify(ctx context.Context, res appraisal.Result) error {
	msg, ok := Plan(res)
	if !ok || s.Mailer == nil {
		return nil
	}
	recipient, err := s.recipient(ctx, res.Appraisal, msg.RecipientRole)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		slog.Info("notification recipient unknown", "appraisalId", res.Appraisal.ID, "role", msg.RecipientRole)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve %s: %w", msg.RecipientRole, err)
	}
	if recipient.Email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, recipient.Email, msg.Subject, msg.Body); err != nil {
		slog.Warn("notification email send failed", "type", msg.Type, "appraisalId", res.Appraisal.ID, "err", err)
	}
	return nil
}

func (s *Service) recipient(ctx context.Context, a appraisal.Appraisal, role string) (directory.Employee, error) {
	if s.dir == nil {
		return directory.Employee{}, directory.ErrEmployeeNotFound
	}
	switch role {
	case appraisal.RoleEmployee:
		return s.dir.GetEmployee(ctx, a.EmployeeID)
	case appraisal.RoleSupervisor:
		if a.SupervisorID != "" {
			return s.dir.GetEmployee(ctx, a.SupervisorID)
		}
		return s.dir.GetManagerOf(ctx, a.EmployeeID)
	case appraisal.RoleReviewer:
		if a.ReviewerID != "" {
			return s.dir.GetEmployee(ctx, a.ReviewerID)
		}
		return s.dir.GetReviewerOf(ctx, a.EmployeeID)
	}
	return directory.Employee{}, directory.ErrEmployeeNotFound
}
