package directory

import (
	"context"
	"errors"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrUnavailable      = errors.New("employee directory unavailable")
)

type Employee struct {
	ID           string `json:"id" yaml:"id"`
	UserID       string `json:"userId" yaml:"userId"`
	Name         string `json:"name" yaml:"name"`
	Email        string `json:"email" yaml:"email"`
	ManagerID    string `json:"managerId,omitempty" yaml:"managerId"`
	ReviewerID   string `json:"reviewerId,omitempty" yaml:"reviewerId"`
	DepartmentID string `json:"departmentId,omitempty" yaml:"departmentId"`
}

// Directory is the external employee and hierarchy lookup.
type Directory interface {
	GetEmployee(ctx context.Context, id string) (Employee, error)
	GetManagerOf(ctx context.Context, employeeID string) (Employee, error)
	GetReviewerOf(ctx context.Context, employeeID string) (Employee, error)
}

// follow resolves a hierarchy link in two hops: the subject's record, then the
// record the link points at. A blank link is reported as not found.
func follow(ctx context.Context, get func(context.Context, string) (Employee, error), employeeID string, link func(Employee) string) (Employee, error) {
	subject, err := get(ctx, employeeID)
	if err != nil {
		return Employee{}, err
	}
	target := link(subject)
	if target == "" {
		return Employee{}, ErrEmployeeNotFound
	}
	return get(ctx, target)
}

func managerLink(e Employee) string  { return e.ManagerID }
func reviewerLink(e Employee) string { return e.ReviewerID }
