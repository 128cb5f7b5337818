package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

var (
	alice = model.GovernorView{IDNum: "G-A", Name: "Alice", CollegeDep: "CCS"}
	bob   = model.GovernorView{IDNum: "G-B", Name: "Bob", CollegeDep: "CBA"}
)

type fakeArchiver struct {
	calls int
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, filename string, _ []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/" + filename, nil
}

// stalledArchiver never answers before its context ends.
type stalledArchiver struct{ deadline bool }

func (s *stalledArchiver) Archive(ctx context.Context, _ string, _ []byte) (string, error) {
	_, s.deadline = ctx.Deadline()
	<-ctx.Done()
	return "", ctx.Err()
}

type countRecorder struct{ n int }

func (c *countRecorder) StudentsImported(n int) { c.n += n }

func seed(t *testing.T) (*store.Memory, model.Event) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	for _, g := range []model.GovernorView{alice, bob} {
		if _, err := mem.CreateGovernor(ctx, model.Governor{IDNum: g.IDNum, Name: g.Name, CollegeDep: g.CollegeDep, Password: "x"}); err != nil {
			t.Fatalf("seed governor: %v", err)
		}
	}
	ev, err := mem.CreateEvent(ctx, model.Event{EventCode: uuid.NewString(), GovID: alice.IDNum, Name: "Orientation", Date: "2026-08-01"})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return mem, ev
}

func csvFile(body string) File {
	return File{Name: "roster.csv", Data: []byte("id_num,name,program\n" + body)}
}

func wantErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	e := apperr.From(err)
	if e == nil || e.Kind != kind || e.Message != msg {
		t.Fatalf("expected %s %q, got %v", kind, msg, err)
	}
}

func TestUploadInsertsAndDedups(t *testing.T) {
	mem, ev := seed(t)
	rec := &countRecorder{}
	svc := NewService(mem, WithRecorder(rec))
	ctx := context.Background()

	res, err := svc.Upload(ctx, alice, ev.ID, csvFile("1,Ada,BSCS\n2,Alan,BSCS\n1,Ada Again,BSIT\n"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Count != 2 || res.Message != "2 students uploaded successfully" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Students[0].Name != "Ada" {
		t.Fatalf("first occurrence must win, got %+v", res.Students[0])
	}
	for _, s := range res.Students {
		if s.IsAssigned || s.HoursRender != 0 || s.AssignedBy != alice.IDNum || s.EventID == nil || *s.EventID != ev.ID {
			t.Fatalf("unexpected student defaults: %+v", s)
		}
	}
	if res.ArchiveURL != "" {
		t.Fatalf("no archiver configured, got %q", res.ArchiveURL)
	}

	res, err = svc.Upload(ctx, alice, ev.ID, csvFile("2,Alan,BSCS\n3,Grace,BSIT\n"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if res.Count != 1 || res.Students[0].IDNum != "3" {
		t.Fatalf("expected only the new student, got %+v", res)
	}
	if rec.n != 3 {
		t.Fatalf("expected 3 recorded imports, got %d", rec.n)
	}

	_, err = svc.Upload(ctx, alice, ev.ID, csvFile("1,Ada,BSCS\n3,Grace,BSIT\n"))
	wantErr(t, err, apperr.KindValidation, MsgAllExist)

	ids, _ := mem.EventStudentIDs(ctx, ev.ID)
	if len(ids) != 3 {
		t.Fatalf("expected 3 students, got %v", ids)
	}
}

func TestUploadRejects(t *testing.T) {
	mem, ev := seed(t)
	svc := NewService(mem)
	ctx := context.Background()

	_, err := svc.Upload(ctx, alice, ev.ID, File{})
	wantErr(t, err, apperr.KindValidation, MsgNoFile)

	_, err = svc.Upload(ctx, alice, ev.ID, File{Name: "roster.pdf", Data: []byte("%PDF")})
	wantErr(t, err, apperr.KindValidation, MsgInvalidFormat)

	_, err = svc.Upload(ctx, bob, ev.ID, csvFile("1,Ada,BSCS\n"))
	wantErr(t, err, apperr.KindNotFound, MsgEventNotFound)

	_, err = svc.Upload(ctx, alice, ev.ID, File{Name: "roster.xlsx", Data: []byte("garbage")})
	wantErr(t, err, apperr.KindValidation, MsgUnparseable)

	_, err = svc.Upload(ctx, alice, ev.ID, csvFile(",Nameless,BSCS\n"))
	wantErr(t, err, apperr.KindValidation, MsgInvalidRows)

	ids, _ := mem.EventStudentIDs(ctx, ev.ID)
	if len(ids) != 0 {
		t.Fatalf("rejected uploads must not insert, got %v", ids)
	}
}

type racingStore struct {
	*store.Memory
}

// EventStudentIDs hides existing rows, as if another upload committed after
// the lookup.
func (racingStore) EventStudentIDs(context.Context, int64) ([]string, error) { return nil, nil }

func TestUploadConcurrentDuplicateIsConflict(t *testing.T) {
	mem, ev := seed(t)
	ctx := context.Background()
	if _, err := NewService(mem).Upload(ctx, alice, ev.ID, csvFile("1,Ada,BSCS\n")); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	_, err := NewService(racingStore{mem}).Upload(ctx, alice, ev.ID, csvFile("1,Ada,BSCS\n"))
	wantErr(t, err, apperr.KindConflict, MsgConflict)
}

func TestUploadArchives(t *testing.T) {
	mem, ev := seed(t)
	ctx := context.Background()

	arch := &fakeArchiver{}
	res, err := NewService(mem, WithArchiver(arch)).Upload(ctx, alice, ev.ID, csvFile("1,Ada,BSCS\n"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.ArchiveURL != "https://cdn.example/roster.csv" || arch.calls != 1 {
		t.Fatalf("expected archive url, got %+v", res)
	}

	failing := &fakeArchiver{err: errors.New("cdn down")}
	res, err = NewService(mem, WithArchiver(failing)).Upload(ctx, alice, ev.ID, csvFile("2,Alan,BSCS\n"))
	if err != nil {
		t.Fatalf("archive failure must not fail the upload: %v", err)
	}
	if res.ArchiveURL != "" || res.Count != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUploadArchiveTimeout(t *testing.T) {
	mem, ev := seed(t)
	arch := &stalledArchiver{}
	svc := NewService(mem, WithArchiver(arch), WithArchiveTimeout(20*time.Millisecond))

	start := time.Now()
	res, err := svc.Upload(context.Background(), alice, ev.ID, csvFile("1,Ada,BSCS\n"))
	if err != nil {
		t.Fatalf("stalled archive must not fail the upload: %v", err)
	}
	if !arch.deadline {
		t.Fatal("archive context carried no deadline")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("upload waited %s on the archive", elapsed)
	}
	if res.Count != 1 || res.ArchiveURL != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestList(t *testing.T) {
	mem, ev := seed(t)
	svc := NewService(mem)
	ctx := context.Background()

	list, err := svc.List(ctx, alice, ev.ID)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", list, err)
	}
	if _, err := svc.Upload(ctx, alice, ev.ID, csvFile("1,Ada,BSCS\n")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if list, _ := svc.List(ctx, alice, ev.ID); len(list) != 1 {
		t.Fatalf("expected 1 student, got %+v", list)
	}
	if list, _ := svc.List(ctx, bob, ev.ID); len(list) != 0 {
		t.Fatalf("bob must not see alice's students, got %+v", list)
	}
}
