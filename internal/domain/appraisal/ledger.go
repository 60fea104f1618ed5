package appraisal

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

type CommentEntry struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	AuthorID    string    `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	Role        string    `json:"role"`
	Action      string    `json:"action"`
	CommentText string    `json:"commentText"`
	ViaOverride bool      `json:"viaOverride,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Ledger is the append-only, role-partitioned review log of one appraisal.
// Seq is assigned per appraisal; within a partition timestamps never go backwards.
type Ledger struct {
	partitions map[string][]CommentEntry
	seq        int64
}

// NewLedger rebuilds a ledger from persisted entries in sequence order.
func NewLedger(entries []CommentEntry) (Ledger, error) {
	sorted := make([]CommentEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	var l Ledger
	for _, e := range sorted {
		if !validLedgerRole(e.Role) {
			return Ledger{}, fmt.Errorf("ledger entry %s: unknown role %q", e.ID, e.Role)
		}
		if e.Seq <= l.seq {
			return Ledger{}, fmt.Errorf("ledger entry %s: duplicate sequence %d", e.ID, e.Seq)
		}
		l.ensure()
		l.partitions[e.Role] = append(l.partitions[e.Role], e)
		l.seq = e.Seq
	}
	return l, nil
}

func (l *Ledger) ensure() {
	if l.partitions == nil {
		l.partitions = make(map[string][]CommentEntry, len(LedgerRoles))
	}
}

// Append adds an entry to the role's partition and returns it with ID and Seq assigned.
func (l *Ledger) Append(role string, entry CommentEntry) (CommentEntry, error) {
	if !validLedgerRole(role) {
		return CommentEntry{}, invalid("role", "unknown ledger role")
	}
	l.ensure()
	entry.Role = role
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if existing := l.partitions[role]; len(existing) > 0 {
		if last := existing[len(existing)-1].Timestamp; entry.Timestamp.Before(last) {
			entry.Timestamp = last
		}
	}
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	l.seq++
	entry.Seq = l.seq
	l.partitions[role] = append(l.partitions[role], entry)
	return entry, nil
}

// List returns a copy of the role's entries in append order.
func (l Ledger) List(role string) []CommentEntry {
	src := l.partitions[role]
	out := make([]CommentEntry, len(src))
	copy(out, src)
	return out
}

func (l Ledger) Len(role string) int {
	return len(l.partitions[role])
}

// Seq is the highest sequence number handed out so far.
func (l Ledger) Seq() int64 {
	return l.seq
}

// Since returns entries appended after seq across all partitions, in sequence order.
func (l Ledger) Since(seq int64) []CommentEntry {
	var out []CommentEntry
	for _, role := range LedgerRoles {
		for _, e := range l.partitions[role] {
			if e.Seq > seq {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (l Ledger) MarshalJSON() ([]byte, error) {
	out := make(map[string][]CommentEntry, len(LedgerRoles))
	for _, role := range LedgerRoles {
		out[role] = l.List(role)
	}
	return json.Marshal(out)
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var in map[string][]CommentEntry
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var all []CommentEntry
	for role, entries := range in {
		for _, e := range entries {
			e.Role = role
			all = append(all, e)
		}
	}
	rebuilt, err := NewLedger(all)
	if err != nil {
		return err
	}
	*l = rebuilt
	return nil
}
