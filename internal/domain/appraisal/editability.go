package appraisal

// CanEdit reports whether an actor in role may mutate section of a. It is pure and
// gates every section write; workflow actions are gated by the transition table instead.
//
// Rules, first match wins:
//  1. revision_requested: ratings belong to the supervisor while supervisorApprovedAt
//     is null; every other section belongs to the employee.
//  2. employee: authoring sections are editable only in draft; a submitted appraisal
//     is read-only to its subject.
//  3. supervisor, ratings, past draft: editable until supervisorApprovedAt is set.
//  4. otherwise read-only.
func CanEdit(section, role string, a *Appraisal) bool {
	if a == nil || !knownSection(section) {
		return false
	}
	if a.Status == StatusRevisionRequested {
		if section == SectionRatings {
			return role == RoleSupervisor && a.SupervisorApprovedAt == nil
		}
		return role == RoleEmployee
	}
	if role == RoleEmployee {
		return a.Status == StatusDraft && section != SectionFinalReview
	}
	if role == RoleSupervisor && section == SectionRatings && a.Status != StatusDraft {
		return !IsTerminal(a.Status) && a.SupervisorApprovedAt == nil
	}
	return false
}

// EditableSections evaluates CanEdit for every section across the given roles.
func EditableSections(a *Appraisal, roles []string) map[string]bool {
	out := make(map[string]bool, len(Sections))
	for _, section := range Sections {
		for _, role := range roles {
			if CanEdit(section, role, a) {
				out[section] = true
				break
			}
		}
		if !out[section] {
			out[section] = false
		}
	}
	return out
}

func knownSection(section string) bool {
	for _, s := range Sections {
		if s == section {
			return true
		}
	}
	return false
}
