package appraisal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resolver determines which workflow roles an actor holds on an appraisal.
// Implementations must fail closed: lookup failures yield no capability.
type Resolver interface {
	Resolve(ctx context.Context, actor Actor, a *Appraisal) Capabilities
}

type Service struct {
	store    StoreAPI
	resolver Resolver
	now      func() time.Time
}

func NewService(store StoreAPI, resolver Resolver) *Service {
	return &Service{store: store, resolver: resolver, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source. Used by tests and the CLI.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Create(ctx context.Context, actor Actor, in NewAppraisal) (Appraisal, error) {
	if in.EmployeeID == "" {
		in.EmployeeID = actor.EmployeeID
	}
	if in.EmployeeID == "" {
		return Appraisal{}, invalid("employeeId", "required")
	}
	if in.EmployeeID != actor.EmployeeID && !actor.HROverride {
		return Appraisal{}, ErrUnauthorized
	}
	if !in.Period.Start.IsZero() && !in.Period.End.IsZero() && in.Period.End.Before(in.Period.Start) {
		return Appraisal{}, invalid("period.end", "must be on or after period.start")
	}
	if err := validateCategories(in.Categories, true); err != nil {
		return Appraisal{}, err
	}

	now := s.now()
	a := Appraisal{
		ID:                 uuid.NewString(),
		EmployeeID:         in.EmployeeID,
		Period:             in.Period,
		Status:             StatusDraft,
		SupervisorID:       strings.TrimSpace(in.SupervisorID),
		ReviewerID:         strings.TrimSpace(in.ReviewerID),
		SupervisorApproval: ApprovalPending,
		ReviewerApproval:   ApprovalPending,
		Categories:         append([]Category{}, in.Categories...),
		OverallRating:      OverallRating(in.Categories),
		EmployeeDetails:    in.EmployeeDetails,
		Achievements:       in.Achievements,
		DevelopmentPlans:   in.DevelopmentPlans,
		Version:            1,
		CreatedBy:          actor.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, &a); err != nil {
		return Appraisal{}, err
	}
	return a, nil
}

// Get returns the appraisal with the actor's resolved capabilities and editable sections.
func (s *Service) Get(ctx context.Context, id string, actor Actor) (View, error) {
	a, caps, err := s.load(ctx, id, actor)
	if err != nil {
		return View{}, err
	}
	if !caps.Any() {
		return View{}, deny(caps)
	}
	return View{
		Appraisal:     a,
		Capabilities:  caps,
		Editable:      EditableSections(&a, caps.Roles()),
		ReviewerStage: a.ReviewerStageReachable(),
	}, nil
}

func (s *Service) Comments(ctx context.Context, id string, actor Actor, role string) ([]CommentEntry, error) {
	if !validLedgerRole(role) {
		return nil, invalid("role", "must be supervisor or reviewer")
	}
	view, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return view.Appraisal.Comments.List(role), nil
}

func (s *Service) UpdateDraft(ctx context.Context, id string, actor Actor, upd DraftUpdate) (Result, error) {
	_, caps, err := s.load(ctx, id, actor)
	if err != nil {
		return Result{}, err
	}
	if !caps.IsEmployee {
		return Result{}, deny(caps)
	}

	var res Result
	updated, err := s.store.Mutate(ctx, id, func(cur *Appraisal) error {
		if err := checkVersion(cur, upd.ExpectedVersion); err != nil {
			return err
		}
		res.PreviousStatus = cur.Status
		if upd.EmployeeDetails != nil {
			if !CanEdit(SectionEmployeeDetails, RoleEmployee, cur) {
				return ErrUnauthorized
			}
			cur.EmployeeDetails = upd.EmployeeDetails
		}
		if upd.Achievements != nil {
			if !CanEdit(SectionAchievements, RoleEmployee, cur) {
				return ErrUnauthorized
			}
			cur.Achievements = upd.Achievements
		}
		if upd.DevelopmentPlans != nil {
			if !CanEdit(SectionDevelopment, RoleEmployee, cur) {
				return ErrUnauthorized
			}
			cur.DevelopmentPlans = upd.DevelopmentPlans
		}
		if upd.EmployeeComments != nil {
			if !CanEdit(SectionComments, RoleEmployee, cur) {
				return ErrUnauthorized
			}
			cur.EmployeeComments = *upd.EmployeeComments
		}
		if upd.Categories != nil {
			if !CanEdit(SectionRatings, RoleEmployee, cur) {
				return ErrUnauthorized
			}
			if err := validateCategories(upd.Categories, cur.Status == StatusDraft); err != nil {
				return err
			}
			cur.Categories = append([]Category{}, upd.Categories...)
			cur.OverallRating = OverallRating(cur.Categories)
		}
		cur.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Appraisal = updated
	res.ActedRole = RoleEmployee
	return res, nil
}

func (s *Service) Submit(ctx context.Context, id string, actor Actor, expectedVersion int64) (Result, error) {
	_, caps, err := s.load(ctx, id, actor)
	if err != nil {
		return Result{}, err
	}
	if !caps.IsEmployee {
		return Result{}, deny(caps)
	}

	var res Result
	updated, err := s.store.Mutate(ctx, id, func(cur *Appraisal) error {
		if err := checkVersion(cur, expectedVersion); err != nil {
			return err
		}
		res.PreviousStatus = cur.Status
		now := s.now()
		if err := Submit(cur, now); err != nil {
			return err
		}
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Appraisal = updated
	res.ActedRole = RoleEmployee
	return res, nil
}

// RecordAction applies a supervisor or reviewer action. The claimed role is checked
// against the resolver before the transition guards run inside the store transaction.
func (s *Service) RecordAction(ctx context.Context, id string, actor Actor, req ActionRequest) (Result, error) {
	switch req.Role {
	case RoleEmployee, RoleSupervisor, RoleReviewer:
	default:
		return Result{}, invalid("role", "must be employee, supervisor or reviewer")
	}
	_, caps, err := s.load(ctx, id, actor)
	if err != nil {
		return Result{}, err
	}
	if !caps.Holds(req.Role) {
		return Result{}, deny(caps)
	}

	res := Result{ActedRole: req.Role, ViaOverride: caps.IsHROverride}
	updated, err := s.store.Mutate(ctx, id, func(cur *Appraisal) error {
		if err := checkVersion(cur, req.ExpectedVersion); err != nil {
			return err
		}
		res.PreviousStatus = cur.Status
		now := s.now()
		entry, err := Apply(cur, actor, req, caps.IsHROverride, now)
		if err != nil {
			return err
		}
		res.Entry = &entry
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Appraisal = updated
	return res, nil
}

// SaveRatings replaces the categories and persists the recomputed overall rating
// in the same write. Status is not changed.
func (s *Service) SaveRatings(ctx context.Context, id string, actor Actor, upd RatingsUpdate) (Result, error) {
	_, caps, err := s.load(ctx, id, actor)
	if err != nil {
		return Result{}, err
	}
	if !caps.IsEmployee && !caps.IsSupervisor {
		return Result{}, deny(caps)
	}

	var res Result
	updated, err := s.store.Mutate(ctx, id, func(cur *Appraisal) error {
		if err := checkVersion(cur, upd.ExpectedVersion); err != nil {
			return err
		}
		res.PreviousStatus = cur.Status
		role := ""
		for _, candidate := range caps.Roles() {
			if CanEdit(SectionRatings, candidate, cur) {
				role = candidate
				break
			}
		}
		if role == "" {
			return ErrUnauthorized
		}
		if upd.ManagerComments != nil && role != RoleSupervisor {
			return ErrUnauthorized
		}
		if err := validateCategories(upd.Categories, cur.Status == StatusDraft); err != nil {
			return err
		}
		cur.Categories = append([]Category{}, upd.Categories...)
		cur.OverallRating = OverallRating(cur.Categories)
		if upd.ManagerComments != nil {
			cur.ManagerComments = *upd.ManagerComments
		}
		cur.UpdatedAt = s.now()
		res.ActedRole = role
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Appraisal = updated
	res.ViaOverride = caps.IsHROverride && res.ActedRole == RoleSupervisor
	return res, nil
}

// Cancel closes a non-terminal appraisal. Only an HR override may cancel.
func (s *Service) Cancel(ctx context.Context, id string, actor Actor, reason string, expectedVersion int64) (Result, error) {
	_, caps, err := s.load(ctx, id, actor)
	if err != nil {
		return Result{}, err
	}
	if !caps.IsHROverride {
		return Result{}, deny(caps)
	}

	res := Result{ActedRole: RoleReviewer, ViaOverride: true}
	updated, err := s.store.Mutate(ctx, id, func(cur *Appraisal) error {
		if err := checkVersion(cur, expectedVersion); err != nil {
			return err
		}
		res.PreviousStatus = cur.Status
		now := s.now()
		entry, err := Cancel(cur, actor, reason, now)
		if err != nil {
			return err
		}
		res.Entry = &entry
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Appraisal = updated
	return res, nil
}

func (s *Service) load(ctx context.Context, id string, actor Actor) (Appraisal, Capabilities, error) {
	if strings.TrimSpace(id) == "" {
		return Appraisal{}, Capabilities{}, ErrNotFound
	}
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Appraisal{}, Capabilities{}, err
	}
	if s.resolver == nil {
		return a, Capabilities{}, nil
	}
	return a, s.resolver.Resolve(ctx, actor, &a), nil
}

// deny reports a refused role claim. A directory outage still reads as
// ErrUnauthorized to callers; ErrDirectoryUnavailable is attached for logging.
func deny(caps Capabilities) error {
	if caps.DirectoryUnavailable {
		return fmt.Errorf("%w: %w", ErrUnauthorized, ErrDirectoryUnavailable)
	}
	return ErrUnauthorized
}

func checkVersion(cur *Appraisal, expected int64) error {
	if expected != 0 && cur.Version != expected {
		return ErrStaleVersion
	}
	return nil
}

// IsClientError reports whether err is a recoverable workflow error rather than an
// infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStaleVersion)
}
