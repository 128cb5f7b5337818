package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"rollcall/internal/model"
)

func seedEvent(t *testing.T, m *Memory, gov string) model.Event {
	t.Helper()
	ctx := context.Background()
	if g, _ := m.GetGovernor(ctx, gov); g == nil {
		if _, err := m.CreateGovernor(ctx, model.Governor{IDNum: gov, Name: gov, CollegeDep: "CCS", Password: "x"}); err != nil {
			t.Fatalf("create governor: %v", err)
		}
	}
	e, err := m.CreateEvent(ctx, model.Event{EventCode: uuid.NewString(), GovID: gov, Name: "Orientation", Date: "2026-08-01"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func students(eventID int64, gov string, ids ...string) []model.Student {
	out := make([]model.Student, 0, len(ids))
	for _, id := range ids {
		eid := eventID
		out = append(out, model.Student{IDNum: id, Name: "Student " + id, Program: "BSCS", EventID: &eid, AssignedBy: gov})
	}
	return out
}

func TestMemoryGovernorUnique(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	g := model.Governor{IDNum: "G1", Name: "Ada", CollegeDep: "CCS", Password: "hash"}
	if _, err := m.CreateGovernor(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := m.CreateGovernor(ctx, model.Governor{IDNum: "G1", Name: "Other"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	got, _ := m.GetGovernor(ctx, "G1")
	if got == nil || got.Name != "Ada" {
		t.Fatalf("first governor changed: %+v", got)
	}
}

func TestMemoryEventOwnership(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	e := seedEvent(t, m, "G1")
	seedEvent(t, m, "G2")

	if updated, _ := m.UpdateEvent(ctx, "G2", e.ID, "x", "y"); updated != nil {
		t.Fatal("foreign governor must not update")
	}
	if deleted, _ := m.DeleteEvent(ctx, "G2", e.ID); deleted {
		t.Fatal("foreign governor must not delete")
	}
	if owned, _ := m.OwnedEvent(ctx, "G1", e.ID); owned == nil {
		t.Fatal("owner must see event")
	}
	list, _ := m.ListEvents(ctx, "G1")
	if len(list) != 1 || list[0].ID != e.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestMemoryInsertStudentsConstraints(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	e := seedEvent(t, m, "G1")

	if _, err := m.InsertStudents(ctx, students(e.ID, "G1", "S1", "S2")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := m.InsertStudents(ctx, students(e.ID, "G1", "S3", "S1")); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	ids, _ := m.EventStudentIDs(ctx, e.ID)
	if len(ids) != 2 {
		t.Fatalf("failed batch must insert nothing, got %v", ids)
	}
	if _, err := m.InsertStudents(ctx, students(e.ID, "G1", "")); !errors.Is(err, ErrInvalidRow) {
		t.Fatalf("expected invalid row, got %v", err)
	}

	other := seedEvent(t, m, "G1")
	if _, err := m.InsertStudents(ctx, students(other.ID, "G1", "S1")); err != nil {
		t.Fatalf("same id in another event must be allowed: %v", err)
	}
}

func TestMemoryDeleteEventCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	e := seedEvent(t, m, "G1")
	inserted, err := m.InsertStudents(ctx, students(e.ID, "G1", "S1"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := m.InsertLog(ctx, model.AttendanceLog{StudentID: inserted[0].ID, EventID: e.ID, TimeIn: time.Now()}); err != nil {
		t.Fatalf("insert log: %v", err)
	}

	if deleted, _ := m.DeleteEvent(ctx, "G1", e.ID); !deleted {
		t.Fatal("expected delete")
	}
	if found, _ := m.FindStudents(ctx, "S1"); len(found) != 0 {
		t.Fatalf("students must cascade, got %+v", found)
	}
	if logs, _ := m.ListLogs(ctx, e.ID); len(logs) != 0 {
		t.Fatalf("logs must cascade, got %+v", logs)
	}
}

func TestMemoryCreditLogOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	e := seedEvent(t, m, "G1")
	inserted, _ := m.InsertStudents(ctx, students(e.ID, "G1", "S1"))

	in := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	l, err := m.InsertLog(ctx, model.AttendanceLog{StudentID: inserted[0].ID, EventID: e.ID, TimeIn: in})
	if err != nil {
		t.Fatalf("insert log: %v", err)
	}
	if _, ok, _ := m.CreditLog(ctx, l.ID); ok {
		t.Fatal("open log must not be credited")
	}
	if _, err := m.CloseLog(ctx, l.ID, in.Add(90*time.Minute)); err != nil {
		t.Fatalf("close: %v", err)
	}

	hours, ok, err := m.CreditLog(ctx, l.ID)
	if err != nil || !ok || hours != 1.5 {
		t.Fatalf("expected 1.5h credit, got %v %v %v", hours, ok, err)
	}
	if _, ok, _ := m.CreditLog(ctx, l.ID); ok {
		t.Fatal("second credit must be a no-op")
	}
	found, _ := m.FindStudents(ctx, "S1")
	if len(found) != 1 || found[0].Student.HoursRender != 1.5 {
		t.Fatalf("unexpected hours: %+v", found)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"23505", ErrDuplicate},
		{"23514", ErrInvalidRow},
		{"23502", ErrInvalidRow},
		{"23503", ErrReference},
	}
	for _, tt := range tests {
		err := Classify(fmt.Errorf("insert: %w", &pgconn.PgError{Code: tt.code}))
		if !errors.Is(err, tt.want) {
			t.Errorf("code %s: expected %v, got %v", tt.code, tt.want, err)
		}
	}

	plain := errors.New("boom")
	if Classify(plain) != plain {
		t.Fatal("non-pg errors must pass through")
	}
}
