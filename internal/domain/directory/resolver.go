package directory

import (
	"context"
	"errors"
	"log/slog"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/platform/metrics"
)

// Resolver decides which workflow roles an actor holds on an appraisal.
// Any directory failure resolves to no capability.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

func (r *Resolver) Resolve(ctx context.Context, actor appraisal.Actor, a *appraisal.Appraisal) appraisal.Capabilities {
	var caps appraisal.Capabilities
	if a == nil || (actor.UserID == "" && actor.EmployeeID == "") {
		return caps
	}
	caps.IsEmployee = actor.EmployeeID != "" && actor.EmployeeID == a.EmployeeID
	// nobody reviews their own appraisal, HR included
	if caps.IsEmployee {
		return caps
	}
	if actor.HROverride {
		caps.IsHROverride = true
		caps.IsSupervisor = true
		caps.IsReviewer = true
		return caps
	}

	caps.IsSupervisor = r.holds(ctx, actor, a.SupervisorID, a.EmployeeID, "manager_of", r.dir.GetManagerOf, &caps)
	caps.IsReviewer = r.holds(ctx, actor, a.ReviewerID, a.EmployeeID, "reviewer_of", r.dir.GetReviewerOf, &caps)
	return caps
}

// holds checks the direct assignment first and falls back to the subject's
// manager or reviewer in the directory.
func (r *Resolver) holds(ctx context.Context, actor appraisal.Actor, assigned, subjectID, op string, lookup func(context.Context, string) (Employee, error), caps *appraisal.Capabilities) bool {
	if assigned != "" && sameIdentity(actor, assigned) {
		return true
	}
	if r.dir == nil || subjectID == "" {
		return false
	}

	target, err := lookup(ctx, subjectID)
	switch {
	case err == nil:
		metrics.DirectoryLookups.WithLabelValues(op, "ok").Inc()
	case errors.Is(err, ErrEmployeeNotFound):
		metrics.DirectoryLookups.WithLabelValues(op, "not_found").Inc()
		return false
	default:
		metrics.DirectoryLookups.WithLabelValues(op, "error").Inc()
		slog.Warn("directory lookup failed", "op", op, "employee_id", subjectID, "err", err)
		caps.DirectoryUnavailable = true
		return false
	}
	return (target.UserID != "" && target.UserID == actor.UserID) ||
		(target.ID != "" && target.ID == actor.EmployeeID)
}

func sameIdentity(actor appraisal.Actor, id string) bool {
	return id == actor.UserID || (actor.EmployeeID != "" && id == actor.EmployeeID)
}
