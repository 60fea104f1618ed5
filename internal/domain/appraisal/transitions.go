package appraisal

import (
	"strings"
	"time"
)

// Submit moves a draft to submitted after checking the required fields.
func Submit(a *Appraisal, now time.Time) error {
	if a.Status != StatusDraft {
		return ErrInvalidTransition
	}
	if err := validateForSubmit(a); err != nil {
		return err
	}
	a.Status = StatusSubmitted
	a.SupervisorApproval = ApprovalPending
	a.ReviewerApproval = ApprovalPending
	a.SupervisorApprovedAt = nil
	a.ReviewerApprovedAt = nil
	a.OverallRating = OverallRating(a.Categories)
	submitted := now
	a.SubmittedAt = &submitted
	return nil
}

func validateForSubmit(a *Appraisal) error {
	verr := &ValidationError{}
	if strings.TrimSpace(a.EmployeeID) == "" {
		verr.add("employeeId", "required")
	}
	if a.Period.Start.IsZero() {
		verr.add("period.start", "required")
	}
	if a.Period.End.IsZero() {
		verr.add("period.end", "required")
	}
	if !a.Period.Start.IsZero() && !a.Period.End.IsZero() && a.Period.End.Before(a.Period.Start) {
		verr.add("period.end", "must be on or after period.start")
	}
	if err := validateCategories(a.Categories, false); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			verr.Fields = append(verr.Fields, ve.Fields...)
		}
	}
	return verr.orNil()
}

// Apply validates a review action against the current state and applies it,
// appending the matching ledger entry. The caller must already hold req.Role.
func Apply(a *Appraisal, actor Actor, req ActionRequest, viaOverride bool, now time.Time) (CommentEntry, error) {
	if !validAction(req.Action) {
		return CommentEntry{}, invalid("action", "unknown action")
	}
	if IsTerminal(a.Status) {
		return CommentEntry{}, ErrInvalidTransition
	}
	comment := strings.TrimSpace(req.Comment)

	switch req.Role {
	case RoleSupervisor:
		if a.Status != StatusSubmitted && a.Status != StatusRevisionRequested {
			return CommentEntry{}, ErrInvalidTransition
		}
		switch req.Action {
		case ActionComment:
			if comment == "" {
				return CommentEntry{}, invalid("comment", "comment text is required")
			}
		case ActionApprove:
			if a.SupervisorApproval == ApprovalApproved {
				return CommentEntry{}, ErrInvalidTransition
			}
			approved := now
			a.SupervisorApproval = ApprovalApproved
			a.SupervisorApprovedAt = &approved
			a.Status = StatusSupervisorApproved
		case ActionRequestChanges:
			if comment == "" {
				return CommentEntry{}, invalid("comment", "comment text is required when requesting changes")
			}
			a.SupervisorApproval = ApprovalPending
			a.Status = StatusRevisionRequested
		default:
			return CommentEntry{}, ErrInvalidTransition
		}

	case RoleReviewer:
		switch req.Action {
		case ActionComment:
			if !a.ReviewerStageReachable() {
				return CommentEntry{}, ErrInvalidTransition
			}
			if comment == "" {
				return CommentEntry{}, invalid("comment", "comment text is required")
			}
		case ActionFinalApprove:
			if a.Status != StatusSupervisorApproved || a.ReviewerApproval == ApprovalApproved {
				return CommentEntry{}, ErrInvalidTransition
			}
			approved := now
			a.ReviewerApproval = ApprovalApproved
			a.ReviewerApprovedAt = &approved
			a.Status = StatusCompleted
		case ActionRequestChanges:
			if a.Status != StatusSupervisorApproved {
				return CommentEntry{}, ErrInvalidTransition
			}
			if comment == "" {
				return CommentEntry{}, invalid("comment", "comment text is required when requesting changes")
			}
			a.SupervisorApproval = ApprovalPending
			a.SupervisorApprovedAt = nil
			a.Status = StatusRevisionRequested
		default:
			return CommentEntry{}, ErrInvalidTransition
		}

	default:
		return CommentEntry{}, ErrInvalidTransition
	}

	return a.Comments.Append(req.Role, CommentEntry{
		AuthorID:    actor.UserID,
		AuthorName:  actor.Name,
		Action:      req.Action,
		CommentText: comment,
		ViaOverride: viaOverride,
		Timestamp:   now,
	})
}

// Cancel closes a non-terminal appraisal. The entry lands in the reviewer partition.
func Cancel(a *Appraisal, actor Actor, reason string, now time.Time) (CommentEntry, error) {
	if IsTerminal(a.Status) {
		return CommentEntry{}, ErrInvalidTransition
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return CommentEntry{}, invalid("reason", "cancellation reason is required")
	}
	a.Status = StatusCancelled
	return a.Comments.Append(RoleReviewer, CommentEntry{
		AuthorID:    actor.UserID,
		AuthorName:  actor.Name,
		Action:      ActionCancel,
		CommentText: reason,
		ViaOverride: actor.HROverride,
		Timestamp:   now,
	})
}
