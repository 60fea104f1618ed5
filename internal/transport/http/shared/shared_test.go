package shared

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"appraisal/internal/domain/appraisal"
)

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	v.Required("role", " ", "is required")
	v.Enum("action", "approve_all", []string{"approve", "comment"}, "is not a known action")
	v.Enum("action", "", []string{"approve"}, "ignored when empty")
	start := v.OptionalDate("period.start", "2026-01-01")
	end := v.OptionalDate("period.end", "2025-12-31")
	v.OptionalDate("period.bad", "01/02/2026")
	v.DateOrder("period.start", start, "period.end", end)

	issues := v.Issues()
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %+v", issues)
	}
	if issues[0].Field != "action" || issues[len(issues)-1].Field != "role" {
		t.Fatalf("expected issues sorted by field, got %+v", issues)
	}
}

func TestRejectWritesValidationEnvelope(t *testing.T) {
	v := NewValidator()
	if v.Reject(httptest.NewRecorder(), "req-1") {
		t.Fatal("expected empty validator not to reject")
	}
	v.Add("comment", "is required")
	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected reject")
	}
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIssuesFromError(t *testing.T) {
	err := fmt.Errorf("save: %w", &appraisal.ValidationError{Fields: []appraisal.FieldError{{Field: "categories[0].weight", Reason: "must be positive"}}})
	issues := IssuesFromError(err)
	if len(issues) != 1 || issues[0].Field != "categories[0].weight" {
		t.Fatalf("unexpected issues: %+v", issues)
	}
	if IssuesFromError(errors.New("other")) != nil {
		t.Fatal("expected nil for non-validation errors")
	}
}

func TestParsePaginationClamps(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=500&offset=-3", nil)
	p := ParsePagination(req, 50, 200)
	if p.Limit != 200 || p.Offset != 0 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestParseDateNormalizesToCalendarDay(t *testing.T) {
	d, err := ParseDate("2026-03-01T23:30:00-02:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.Format("2006-01-02"); got != "2026-03-02" {
		t.Fatalf("expected UTC calendar day, got %s", got)
	}
	if d.Hour() != 0 {
		t.Fatalf("expected midnight, got %v", d)
	}
	if _, err := ParseDate("March 1"); err == nil {
		t.Fatal("expected error for free-form date")
	}
}
