package event

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

const (
	MsgNoEvents       = "No events found for this governor"
	MsgNotFound       = "Event not found or unauthorized"
	MsgFieldsRequired = "Name and date are required"
)

// Store persists events. Update and Delete match on (id, governor) together.
type Store interface {
	ListEvents(ctx context.Context, govID string) ([]model.Event, error)
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	// UpdateEvent returns nil, nil when (id, govID) matches nothing.
	UpdateEvent(ctx context.Context, govID string, id int64, name, date string) (*model.Event, error)
	DeleteEvent(ctx context.Context, govID string, id int64) (bool, error)
}

// Input is the editable part of an event.
type Input struct {
	Name string `json:"name" validate:"required"`
	Date string `json:"date" validate:"required"`
}

// Service manages events on behalf of their owning governor.
type Service struct {
	store    Store
	validate *validator.Validate
	newCode  func() string
}

// NewService creates an event registry.
func NewService(s Store) *Service {
	return &Service{store: s, validate: validator.New(), newCode: uuid.NewString}
}

// List returns the governor's events, oldest first.
func (s *Service) List(ctx context.Context, gov model.GovernorView) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx, gov.IDNum)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(events) == 0 {
		return nil, apperr.NotFound(MsgNoEvents)
	}
	return events, nil
}

// Create stores a new event with a fresh code.
func (s *Service) Create(ctx context.Context, gov model.GovernorView, in Input) (model.Event, error) {
	in, err := s.clean(in)
	if err != nil {
		return model.Event{}, err
	}
	e, err := s.store.CreateEvent(ctx, model.Event{
		EventCode: s.newCode(),
		GovID:     gov.IDNum,
		Name:      in.Name,
		Date:      in.Date,
	})
	if err != nil {
		return model.Event{}, apperr.Internal(err)
	}
	return e, nil
}

// Update renames or re-dates an owned event.
func (s *Service) Update(ctx context.Context, gov model.GovernorView, id int64, in Input) (model.Event, error) {
	in, err := s.clean(in)
	if err != nil {
		return model.Event{}, err
	}
	e, err := s.store.UpdateEvent(ctx, gov.IDNum, id, in.Name, in.Date)
	if err != nil {
		return model.Event{}, apperr.Internal(err)
	}
	if e == nil {
		return model.Event{}, apperr.NotFound(MsgNotFound)
	}
	return *e, nil
}

// Delete removes an owned event along with its students and logs.
func (s *Service) Delete(ctx context.Context, gov model.GovernorView, id int64) error {
	ok, err := s.store.DeleteEvent(ctx, gov.IDNum, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound(MsgNotFound)
	}
	return nil
}

func (s *Service) clean(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Date = strings.TrimSpace(in.Date)
	if err := s.validate.Struct(in); err != nil {
		return Input{}, apperr.Wrap(apperr.KindValidation, MsgFieldsRequired, err)
	}
	return in, nil
}
