package appraisal

import (
	"testing"
	"time"
)

func TestCanEditDraftBelongsToEmployee(t *testing.T) {
	a := &Appraisal{Status: StatusDraft}
	for _, section := range Sections {
		want := section != SectionFinalReview
		if got := CanEdit(section, RoleEmployee, a); got != want {
			t.Fatalf("employee %s in draft: got %v want %v", section, got, want)
		}
		if CanEdit(section, RoleSupervisor, a) || CanEdit(section, RoleReviewer, a) {
			t.Fatalf("%s in draft must not be editable by reviewers", section)
		}
	}
}

func TestCanEditSubmittedRatingsBelongToSupervisor(t *testing.T) {
	a := &Appraisal{Status: StatusSubmitted, SupervisorApproval: ApprovalPending}
	if !CanEdit(SectionRatings, RoleSupervisor, a) {
		t.Fatalf("supervisor should edit ratings before approving")
	}
	if CanEdit(SectionRatings, RoleEmployee, a) {
		t.Fatalf("submitted appraisal is read-only to the employee")
	}
	if CanEdit(SectionAchievements, RoleSupervisor, a) {
		t.Fatalf("supervisor only edits ratings")
	}

	approved := time.Now()
	a.Status = StatusSupervisorApproved
	a.SupervisorApprovedAt = &approved
	if CanEdit(SectionRatings, RoleSupervisor, a) {
		t.Fatalf("ratings lock once the supervisor approved")
	}
}

func TestCanEditAfterReviewerRequestsChanges(t *testing.T) {
	a := &Appraisal{Status: StatusRevisionRequested, SupervisorApproval: ApprovalPending}
	if !CanEdit(SectionRatings, RoleSupervisor, a) {
		t.Fatalf("supervisor must be the ratings editor after a revision request")
	}
	if CanEdit(SectionRatings, RoleEmployee, a) {
		t.Fatalf("employee must not edit ratings after a revision request")
	}
	if !CanEdit(SectionAchievements, RoleEmployee, a) {
		t.Fatalf("employee edits non-rating sections during revision")
	}
	if CanEdit(SectionAchievements, RoleSupervisor, a) {
		t.Fatalf("supervisor does not edit employee sections")
	}
}

func TestCanEditTerminalIsReadOnly(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusCancelled} {
		a := &Appraisal{Status: status}
		for _, section := range Sections {
			for _, role := range []string{RoleEmployee, RoleSupervisor, RoleReviewer} {
				if CanEdit(section, role, a) {
					t.Fatalf("%s/%s editable in %s", role, section, status)
				}
			}
		}
	}
}

func TestCanEditUnknownSectionOrNil(t *testing.T) {
	if CanEdit("salary", RoleEmployee, &Appraisal{Status: StatusDraft}) {
		t.Fatalf("unknown section must not be editable")
	}
	if CanEdit(SectionRatings, RoleEmployee, nil) {
		t.Fatalf("nil appraisal must not be editable")
	}
}

func TestEditableSectionsCombinesRoles(t *testing.T) {
	a := &Appraisal{Status: StatusRevisionRequested}
	got := EditableSections(a, []string{RoleSupervisor})
	if len(got) != len(Sections) {
		t.Fatalf("expected every section present, got %v", got)
	}
	if !got[SectionRatings] || got[SectionAchievements] {
		t.Fatalf("unexpected editable map %v", got)
	}
}
