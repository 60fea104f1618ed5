package pdf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"appraisal/internal/domain/appraisal"
)

const dateLayout = "2006-01-02"

// Render writes a read-only summary of a to w. It never changes appraisal state.
func Render(w io.Writer, a appraisal.Appraisal) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Performance appraisal "+a.ID, true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.Cell(0, 10, "Performance Appraisal")
	doc.Ln(12)

	doc.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		doc.SetFont("Helvetica", "B", 11)
		doc.Cell(45, 7, label)
		doc.SetFont("Helvetica", "", 11)
		doc.Cell(0, 7, tr(value))
		doc.Ln(7)
	}
	line("Employee", a.EmployeeID)
	line("Period", fmt.Sprintf("%s to %s", formatDate(a.Period.Start), formatDate(a.Period.End)))
	line("Status", strings.ReplaceAll(a.Status, "_", " "))
	line("Supervisor", orDash(a.SupervisorID))
	line("Reviewer", orDash(a.ReviewerID))
	line("Supervisor approved", formatTimePtr(a.SupervisorApprovedAt))
	line("Reviewer approved", formatTimePtr(a.ReviewerApprovedAt))
	line("Overall rating", fmt.Sprintf("%.1f / %.0f", a.OverallRating, appraisal.MaxRating))
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 13)
	doc.Cell(0, 8, "Ratings")
	doc.Ln(9)
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(230, 230, 230)
	doc.CellFormat(90, 7, "Category", "1", 0, "L", true, 0, "")
	doc.CellFormat(25, 7, "Rating", "1", 0, "C", true, 0, "")
	doc.CellFormat(25, 7, "Weight", "1", 1, "C", true, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, c := range a.Categories {
		doc.CellFormat(90, 7, tr(c.Name), "1", 0, "L", false, 0, "")
		doc.CellFormat(25, 7, fmt.Sprintf("%.1f", c.Rating), "1", 0, "C", false, 0, "")
		doc.CellFormat(25, 7, fmt.Sprintf("%.0f", c.Weight), "1", 1, "C", false, 0, "")
	}
	doc.Ln(4)

	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		doc.SetFont("Helvetica", "B", 13)
		doc.Cell(0, 8, title)
		doc.Ln(9)
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, tr(body), "", "L", false)
		doc.Ln(3)
	}
	section("Employee comments", a.EmployeeComments)
	section("Manager comments", a.ManagerComments)

	for _, role := range appraisal.LedgerRoles {
		entries := a.Comments.List(role)
		if len(entries) == 0 {
			continue
		}
		doc.SetFont("Helvetica", "B", 13)
		doc.Cell(0, 8, strings.ToUpper(role[:1])+role[1:]+" log")
		doc.Ln(9)
		doc.SetFont("Helvetica", "", 10)
		for _, e := range entries {
			header := fmt.Sprintf("%s  %s  %s", e.Timestamp.UTC().Format("2006-01-02 15:04"), authorLabel(e), strings.ReplaceAll(e.Action, "_", " "))
			doc.MultiCell(0, 5, tr(header), "", "L", false)
			if e.CommentText != "" {
				doc.SetX(doc.GetX() + 6)
				doc.MultiCell(0, 5, tr(e.CommentText), "", "L", false)
			}
			doc.Ln(1)
		}
	}

	if err := doc.Error(); err != nil {
		return err
	}
	return doc.Output(w)
}

func authorLabel(e appraisal.CommentEntry) string {
	name := e.AuthorName
	if name == "" {
		name = e.AuthorID
	}
	if e.ViaOverride {
		return name + " (HR, acting as " + e.Role + ")"
	}
	return name
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
