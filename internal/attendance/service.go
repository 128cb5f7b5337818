package attendance

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/queue"
)

const (
	MsgAssignRequired    = "Student ID and event ID are required"
	MsgAuthorizeRequired = "Student ID and event code are required"
	MsgStudentNotFound   = "Student not found"
	MsgEventNotFound     = "Event not found or unauthorized"
)

// Refusal reasons reported by Authorize.
const (
	ReasonNotAssigned  = "not assigned"
	ReasonNoEvent      = "no event"
	ReasonCodeMismatch = "code mismatch"
)

// Scan actions.
const (
	ActionTimeIn  = "time_in"
	ActionTimeOut = "time_out"
)

// Store persists assignment state and attendance logs.
type Store interface {
	// ToggleAssignment flips the flag of the (idNum, eventID) student when
	// govID owns the event. It returns nil, nil when nothing matches.
	ToggleAssignment(ctx context.Context, govID, idNum string, eventID int64) (*model.Student, error)
	// FindStudents returns every row for idNum, oldest first.
	FindStudents(ctx context.Context, idNum string) ([]model.StudentEvent, error)
	OwnedEvent(ctx context.Context, govID string, eventID int64) (*model.Event, error)
	OpenLog(ctx context.Context, studentID, eventID int64) (*model.AttendanceLog, error)
	InsertLog(ctx context.Context, l model.AttendanceLog) (model.AttendanceLog, error)
	// CloseLog stamps time_out on an open log. It returns nil, nil when the
	// log is missing or already closed.
	CloseLog(ctx context.Context, logID int64, at time.Time) (*model.AttendanceLog, error)
	ListLogs(ctx context.Context, eventID int64) ([]model.AttendanceLog, error)
	CreditLog(ctx context.Context, logID int64) (float64, bool, error)
}

// Recorder observes authorization outcomes and scans.
type Recorder interface {
	Authorization(reason string)
	Scan(action string)
	HoursCredited(hours float64)
}

// Toggle is the outcome of an assignment flip.
type Toggle struct {
	Action  string        `json:"action"`
	Student model.Student `json:"student"`
}

// StudentRef is the public projection of an authorized student.
type StudentRef struct {
	IDNum   string `json:"id_num"`
	Name    string `json:"name"`
	Program string `json:"program"`
}

// EventRef is the public projection of a student's event.
type EventRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// Decision is the outcome of the public authorization check.
type Decision struct {
	Authorized bool        `json:"authorized"`
	Reason     string      `json:"message"`
	Student    *StudentRef `json:"student,omitempty"`
	Event      *EventRef   `json:"event,omitempty"`

	studentID int64
	eventID   int64
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	Action string              `json:"action"`
	Log    model.AttendanceLog `json:"log"`
}

// Service manages assignment flags and attendance logs.
type Service struct {
	store    Store
	queue    queue.Queue
	recorder Recorder
	now      func() time.Time
}

// NewService creates a service. q may be nil, in which case closed logs are
// not published for hour crediting.
func NewService(s Store, q queue.Queue, r Recorder) *Service {
	return &Service{store: s, queue: q, recorder: r, now: func() time.Time { return time.Now().UTC() }}
}

// ToggleAssignment flips a student's flag inside an event gov owns.
func (s *Service) ToggleAssignment(ctx context.Context, gov model.GovernorView, idNum string, eventID int64) (Toggle, error) {
	idNum = strings.TrimSpace(idNum)
	if idNum == "" || eventID <= 0 {
		return Toggle{}, apperr.Validation(MsgAssignRequired)
	}
	st, err := s.store.ToggleAssignment(ctx, gov.IDNum, idNum, eventID)
	if err != nil {
		return Toggle{}, apperr.Internal(err)
	}
	if st == nil {
		return Toggle{}, apperr.NotFound(MsgStudentNotFound)
	}
	action := "unassigned"
	if st.IsAssigned {
		action = "assigned"
	}
	return Toggle{Action: action, Student: *st}, nil
}

// Authorize checks that idNum is assigned to the event carrying eventCode.
// When the student appears under several events the row matching the code
// is judged, otherwise the oldest.
func (s *Service) Authorize(ctx context.Context, idNum, eventCode string) (Decision, error) {
	idNum = strings.TrimSpace(idNum)
	eventCode = strings.TrimSpace(eventCode)
	if idNum == "" || eventCode == "" {
		return Decision{}, apperr.Validation(MsgAuthorizeRequired)
	}
	rows, err := s.store.FindStudents(ctx, idNum)
	if err != nil {
		return Decision{}, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return Decision{}, apperr.NotFound(MsgStudentNotFound)
	}

	candidate := rows[0]
	for _, r := range rows {
		if r.Event != nil && r.Event.EventCode == eventCode {
			candidate = r
			break
		}
	}

	d := decide(candidate, eventCode)
	if s.recorder != nil {
		s.recorder.Authorization(d.Reason)
	}
	return d, nil
}

func decide(se model.StudentEvent, eventCode string) Decision {
	st := se.Student
	var d Decision
	switch {
	case !st.IsAssigned:
		d.Reason = ReasonNotAssigned
	case se.Event == nil:
		d.Reason = ReasonNoEvent
	case se.Event.EventCode != eventCode:
		d.Reason = ReasonCodeMismatch
	default:
		d.Authorized = true
		d.Reason = "authorized"
		d.Student = &StudentRef{IDNum: st.IDNum, Name: st.Name, Program: st.Program}
		d.studentID = st.ID
		d.Event = &EventRef{ID: se.Event.ID, Name: se.Event.Name, Date: se.Event.Date}
		d.eventID = se.Event.ID
	}
	return d
}

// Scan authorizes the student and then opens or closes their attendance
// log for the event. A refused decision is returned with a nil result.
func (s *Service) Scan(ctx context.Context, idNum, eventCode string) (*ScanResult, Decision, error) {
	d, err := s.Authorize(ctx, idNum, eventCode)
	if err != nil || !d.Authorized {
		return nil, d, err
	}

	open, err := s.store.OpenLog(ctx, d.studentID, d.eventID)
	if err != nil {
		return nil, d, apperr.Internal(err)
	}
	now := s.now()

	if open != nil {
		closed, err := s.store.CloseLog(ctx, open.ID, now)
		if err != nil {
			return nil, d, apperr.Internal(err)
		}
		if closed != nil {
			s.publishClosed(ctx, closed.ID)
			s.observeScan(ActionTimeOut)
			return &ScanResult{Action: ActionTimeOut, Log: *closed}, d, nil
		}
		// Closed concurrently; treat this scan as a fresh time-in.
	}

	l, err := s.store.InsertLog(ctx, model.AttendanceLog{StudentID: d.studentID, EventID: d.eventID, TimeIn: now})
	if err != nil {
		return nil, d, apperr.Internal(err)
	}
	s.observeScan(ActionTimeIn)
	return &ScanResult{Action: ActionTimeIn, Log: l}, d, nil
}

func (s *Service) publishClosed(ctx context.Context, logID int64) {
	if s.queue == nil {
		return
	}
	msg := queue.Message{Type: queue.TypeAttendanceClosed, Body: []byte(strconv.FormatInt(logID, 10))}
	if err := s.queue.Publish(ctx, msg); err != nil {
		log.Printf("queue publish failed for log %d: %v", logID, err)
	}
}

func (s *Service) observeScan(action string) {
	if s.recorder != nil {
		s.recorder.Scan(action)
	}
}

// Logs lists the attendance logs of an event gov owns.
func (s *Service) Logs(ctx context.Context, gov model.GovernorView, eventID int64) ([]model.AttendanceLog, error) {
	ev, err := s.store.OwnedEvent(ctx, gov.IDNum, eventID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if ev == nil {
		return nil, apperr.NotFound(MsgEventNotFound)
	}
	logs, err := s.store.ListLogs(ctx, eventID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if logs == nil {
		logs = []model.AttendanceLog{}
	}
	return logs, nil
}
