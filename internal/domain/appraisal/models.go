package appraisal

import (
	"encoding/json"
	"time"
)

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Category struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Weight      float64 `json:"weight"`
	Comment     string  `json:"comment,omitempty"`
	Description string  `json:"description,omitempty"`
}

type Appraisal struct {
	ID                   string          `json:"id"`
	EmployeeID           string          `json:"employeeId"`
	Period               Period          `json:"period"`
	Status               string          `json:"status"`
	SupervisorID         string          `json:"supervisorId,omitempty"`
	ReviewerID           string          `json:"reviewerId,omitempty"`
	SupervisorApproval   string          `json:"supervisorApproval"`
	ReviewerApproval     string          `json:"reviewerApproval"`
	SupervisorApprovedAt *time.Time      `json:"supervisorApprovedAt"`
	ReviewerApprovedAt   *time.Time      `json:"reviewerApprovedAt"`
	SubmittedAt          *time.Time      `json:"submittedAt,omitempty"`
	OverallRating        float64         `json:"overallRating"`
	Categories           []Category      `json:"categories"`
	EmployeeDetails      json.RawMessage `json:"employeeDetails,omitempty"`
	Achievements         json.RawMessage `json:"achievements,omitempty"`
	DevelopmentPlans     json.RawMessage `json:"developmentPlans,omitempty"`
	EmployeeComments     string          `json:"employeeComments"`
	ManagerComments      string          `json:"managerComments"`
	Comments             Ledger          `json:"comments"`
	Version              int64           `json:"version"`
	CreatedBy            string          `json:"createdBy,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// ReviewerStageReachable is the derived read model gating reviewer access.
func (a *Appraisal) ReviewerStageReachable() bool {
	if a.SupervisorApproval == ApprovalApproved {
		return true
	}
	return a.Status == StatusRevisionRequested && a.SupervisorApprovedAt != nil
}

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	UserID     string
	EmployeeID string
	Name       string
	HROverride bool
}

// Capabilities is the resolved set of roles an actor holds on one appraisal.
type Capabilities struct {
	IsEmployee           bool `json:"isEmployee"`
	IsSupervisor         bool `json:"isSupervisor"`
	IsReviewer           bool `json:"isReviewer"`
	IsHROverride         bool `json:"isHrOverride"`
	DirectoryUnavailable bool `json:"directoryUnavailable,omitempty"`
}

func (c Capabilities) Holds(role string) bool {
	switch role {
	case RoleEmployee:
		return c.IsEmployee
	case RoleSupervisor:
		return c.IsSupervisor
	case RoleReviewer:
		return c.IsReviewer
	}
	return false
}

func (c Capabilities) Any() bool {
	return c.IsEmployee || c.IsSupervisor || c.IsReviewer || c.IsHROverride
}

// Roles returns the workflow roles held, employee first.
func (c Capabilities) Roles() []string {
	var roles []string
	for _, role := range []string{RoleEmployee, RoleSupervisor, RoleReviewer} {
		if c.Holds(role) {
			roles = append(roles, role)
		}
	}
	return roles
}

type View struct {
	Appraisal     Appraisal       `json:"appraisal"`
	Capabilities  Capabilities    `json:"capabilities"`
	Editable      map[string]bool `json:"editable"`
	ReviewerStage bool            `json:"reviewerStage"`
}

type NewAppraisal struct {
	EmployeeID       string
	Period           Period
	SupervisorID     string
	ReviewerID       string
	Categories       []Category
	EmployeeDetails  json.RawMessage
	Achievements     json.RawMessage
	DevelopmentPlans json.RawMessage
}

// DraftUpdate carries employee-authored sections. Nil fields are left unchanged.
type DraftUpdate struct {
	EmployeeDetails  json.RawMessage
	Achievements     json.RawMessage
	DevelopmentPlans json.RawMessage
	EmployeeComments *string
	Categories       []Category
	ExpectedVersion  int64
}

type ActionRequest struct {
	Role            string
	Action          string
	Comment         string
	ExpectedVersion int64
}

type RatingsUpdate struct {
	Categories      []Category
	ManagerComments *string
	ExpectedVersion int64
}

// Result is the outcome of an accepted mutation.
type Result struct {
	Appraisal      Appraisal
	PreviousStatus string
	Entry          *CommentEntry
	ActedRole      string
	ViaOverride    bool
}
