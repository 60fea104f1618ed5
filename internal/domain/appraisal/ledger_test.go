package appraisal

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLedgerAppendKeepsOrder(t *testing.T) {
	var l Ledger
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := l.Append(RoleSupervisor, CommentEntry{AuthorID: "u1", Action: ActionComment, CommentText: "note", Timestamp: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	entries := l.List(RoleSupervisor)
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			t.Fatalf("entry %d has seq %d", i, e.Seq)
		}
		if e.ID == "" || e.Role != RoleSupervisor {
			t.Fatalf("entry %d missing id or role: %+v", i, e)
		}
	}
	if l.Len(RoleReviewer) != 0 {
		t.Fatalf("reviewer partition should be empty")
	}
}

func TestLedgerClampsTimestampWithinPartition(t *testing.T) {
	var l Ledger
	later := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	if _, err := l.Append(RoleReviewer, CommentEntry{Action: ActionComment, Timestamp: later}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entry, err := l.Append(RoleReviewer, CommentEntry{Action: ActionComment, Timestamp: earlier})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !entry.Timestamp.Equal(later) {
		t.Fatalf("expected timestamp clamped to %v, got %v", later, entry.Timestamp)
	}

	other, err := l.Append(RoleSupervisor, CommentEntry{Action: ActionComment, Timestamp: earlier})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !other.Timestamp.Equal(earlier) {
		t.Fatalf("partitions must be independent, got %v", other.Timestamp)
	}
}

func TestLedgerRejectsUnknownRole(t *testing.T) {
	var l Ledger
	if _, err := l.Append(RoleEmployee, CommentEntry{}); err == nil {
		t.Fatalf("expected error for employee partition")
	}
}

func TestLedgerSince(t *testing.T) {
	var l Ledger
	_, _ = l.Append(RoleSupervisor, CommentEntry{Action: ActionApprove})
	mark := l.Seq()
	_, _ = l.Append(RoleReviewer, CommentEntry{Action: ActionRequestChanges, CommentText: "clarify"})
	_, _ = l.Append(RoleSupervisor, CommentEntry{Action: ActionApprove})

	fresh := l.Since(mark)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 new entries, got %d", len(fresh))
	}
	if fresh[0].Role != RoleReviewer || fresh[1].Role != RoleSupervisor {
		t.Fatalf("expected sequence order, got %+v", fresh)
	}
}

func TestLedgerJSONRoundTrip(t *testing.T) {
	var l Ledger
	_, _ = l.Append(RoleSupervisor, CommentEntry{AuthorID: "sup", Action: ActionApprove})
	_, _ = l.Append(RoleReviewer, CommentEntry{AuthorID: "rev", Action: ActionComment, CommentText: "looks fine"})

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Ledger
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Seq() != 2 || decoded.Len(RoleSupervisor) != 1 || decoded.Len(RoleReviewer) != 1 {
		t.Fatalf("unexpected decoded ledger: %s", data)
	}
	if _, err := decoded.Append(RoleSupervisor, CommentEntry{Action: ActionComment}); err != nil {
		t.Fatalf("append after decode: %v", err)
	}
	if decoded.Seq() != 3 {
		t.Fatalf("expected seq to continue at 3, got %d", decoded.Seq())
	}
}

func TestNewLedgerRejectsDuplicateSeq(t *testing.T) {
	_, err := NewLedger([]CommentEntry{
		{ID: "a", Seq: 1, Role: RoleSupervisor},
		{ID: "b", Seq: 1, Role: RoleReviewer},
	})
	if err == nil {
		t.Fatalf("expected duplicate sequence error")
	}
}

func TestLedgerListReturnsCopy(t *testing.T) {
	var l Ledger
	_, _ = l.Append(RoleSupervisor, CommentEntry{CommentText: "original"})
	list := l.List(RoleSupervisor)
	list[0].CommentText = "changed"
	if l.List(RoleSupervisor)[0].CommentText != "original" {
		t.Fatalf("List must not expose internal storage")
	}
}
