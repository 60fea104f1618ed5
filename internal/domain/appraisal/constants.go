package appraisal

const (
	StatusDraft              = "draft"
	StatusSubmitted          = "submitted"
	StatusSupervisorApproved = "supervisor_approved"
	StatusRevisionRequested  = "revision_requested"
	StatusCompleted          = "completed"
	StatusCancelled          = "cancelled"

	ApprovalPending  = "pending"
	ApprovalApproved = "approved"

	RoleEmployee   = "employee"
	RoleSupervisor = "supervisor"
	RoleReviewer   = "reviewer"

	ActionComment        = "comment"
	ActionApprove        = "approve"
	ActionRequestChanges = "request_changes"
	ActionFinalApprove   = "final_approve"
	ActionCancel         = "cancel"

	SectionEmployeeDetails = "employee_details"
	SectionAchievements    = "achievements"
	SectionDevelopment     = "development"
	SectionRatings         = "ratings"
	SectionComments        = "comments"
	SectionFinalReview     = "final_review"

	MinRating = 0.0
	MaxRating = 5.0
)

// Sections lists the logical sections of an appraisal in display order.
var Sections = []string{
	SectionEmployeeDetails,
	SectionAchievements,
	SectionDevelopment,
	SectionRatings,
	SectionComments,
	SectionFinalReview,
}

// LedgerRoles are the roles that own a comment ledger partition.
var LedgerRoles = []string{RoleSupervisor, RoleReviewer}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

func validAction(action string) bool {
	switch action {
	case ActionComment, ActionApprove, ActionRequestChanges, ActionFinalApprove:
		return true
	}
	return false
}

func validLedgerRole(role string) bool {
	return role == RoleSupervisor || role == RoleReviewer
}
