package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

const (
	MsgNoFile        = "No file uploaded"
	MsgInvalidFormat = "Invalid file format"
	MsgUnparseable   = "Unable to parse file"
	MsgAllExist      = "All students already exist"
	MsgInvalidRows   = "Invalid student rows"
	MsgConflict      = "Student already exists for this event"
	MsgEventNotFound = "Event not found or unauthorized"
)

// Store persists roster entries.
type Store interface {
	OwnedEvent(ctx context.Context, govID string, eventID int64) (*model.Event, error)
	EventStudentIDs(ctx context.Context, eventID int64) ([]string, error)
	InsertStudents(ctx context.Context, students []model.Student) ([]model.Student, error)
	ListStudents(ctx context.Context, govID string, eventID int64) ([]model.Student, error)
}

// Archiver keeps a copy of uploaded roster files and returns its URL.
type Archiver interface {
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}

// Recorder observes successful imports.
type Recorder interface {
	StudentsImported(n int)
}

// File is an uploaded roster.
type File struct {
	Name string
	Data []byte
}

// Result is the outcome of an upload.
type Result struct {
	Message    string          `json:"message"`
	Count      int             `json:"count"`
	Students   []model.Student `json:"students"`
	ArchiveURL string          `json:"archive_url,omitempty"`
}

// DefaultArchiveTimeout bounds the archive call so the upload response still
// fits inside the server's write deadline.
const DefaultArchiveTimeout = 5 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithArchiver stores every accepted roster file.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithArchiveTimeout overrides DefaultArchiveTimeout.
func WithArchiveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.archiveTimeout = d
		}
	}
}

// WithRecorder reports imported row counts.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// Service imports student rosters into events.
type Service struct {
	store          Store
	archiver       Archiver
	archiveTimeout time.Duration
	recorder       Recorder
}

// NewService creates a roster importer.
func NewService(s Store, opts ...Option) *Service {
	svc := &Service{store: s, archiveTimeout: DefaultArchiveTimeout}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// Upload parses f and inserts every student not yet linked to the event.
// Duplicate ids inside the file keep their first row.
func (s *Service) Upload(ctx context.Context, gov model.GovernorView, eventID int64, f File) (Result, error) {
	if f.Name == "" || len(f.Data) == 0 {
		return Result{}, apperr.Validation(MsgNoFile)
	}
	if !Supported(f.Name) {
		return Result{}, apperr.Validation(MsgInvalidFormat)
	}

	ev, err := s.store.OwnedEvent(ctx, gov.IDNum, eventID)
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	if ev == nil {
		return Result{}, apperr.NotFound(MsgEventNotFound)
	}

	recs, err := Parse(f.Name, f.Data)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindValidation, MsgUnparseable, err)
	}

	existing, err := s.store.EventStudentIDs(ctx, eventID)
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	seen := make(map[string]bool, len(existing)+len(recs))
	for _, id := range existing {
		seen[id] = true
	}

	var fresh []model.Student
	for _, r := range recs {
		if seen[r.IDNum] {
			continue
		}
		seen[r.IDNum] = true
		eid := eventID
		fresh = append(fresh, model.Student{
			IDNum:      r.IDNum,
			Name:       r.Name,
			Program:    r.Program,
			EventID:    &eid,
			AssignedBy: gov.IDNum,
		})
	}
	if len(fresh) == 0 {
		return Result{}, apperr.Validation(MsgAllExist)
	}

	inserted, err := s.store.InsertStudents(ctx, fresh)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidRow):
			return Result{}, apperr.Wrap(apperr.KindValidation, MsgInvalidRows, err)
		case errors.Is(err, store.ErrDuplicate):
			return Result{}, apperr.Wrap(apperr.KindConflict, MsgConflict, err)
		}
		return Result{}, apperr.Internal(err)
	}
	if s.recorder != nil {
		s.recorder.StudentsImported(len(inserted))
	}

	res := Result{
		Message:  fmt.Sprintf("%d students uploaded successfully", len(inserted)),
		Count:    len(inserted),
		Students: inserted,
	}
	if s.archiver != nil {
		actx, cancel := context.WithTimeout(ctx, s.archiveTimeout)
		url, err := s.archiver.Archive(actx, f.Name, f.Data)
		cancel()
		if err != nil {
			log.Printf("archive roster %q for event %d failed: %v", f.Name, eventID, err)
		} else {
			res.ArchiveURL = url
		}
	}
	return res, nil
}

// List returns the students gov imported into the event.
func (s *Service) List(ctx context.Context, gov model.GovernorView, eventID int64) ([]model.Student, error) {
	students, err := s.store.ListStudents(ctx, gov.IDNum, eventID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if students == nil {
		students = []model.Student{}
	}
	return students, nil
}
