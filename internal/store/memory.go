package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rollcall/internal/model"
)

// Memory is a mutex-guarded in-process store for dev and testing. It
// implements every repository interface the services consume and mirrors the
// Postgres constraints: unique governor ids, unique (event_id, id_num),
// non-empty student ids and cascading event deletes.
type Memory struct {
	mu        sync.Mutex
	now       func() time.Time
	governors map[string]model.Governor
	events    map[int64]model.Event
	students  map[int64]model.Student
	logs      map[int64]model.AttendanceLog

	nextEvent, nextStudent, nextLog int64
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:       func() time.Time { return time.Now().UTC() },
		governors: make(map[string]model.Governor),
		events:    make(map[int64]model.Event),
		students:  make(map[int64]model.Student),
		logs:      make(map[int64]model.AttendanceLog),
	}
}

// Healthy always reports true; there is nothing to reach.
func (m *Memory) Healthy(context.Context) bool { return true }

// -------- Governors --------

// CreateGovernor stores g, failing with ErrDuplicate on a taken id_num.
func (m *Memory) CreateGovernor(_ context.Context, g model.Governor) (model.Governor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.governors[g.IDNum]; ok {
		return model.Governor{}, fmt.Errorf("governor %s: %w", g.IDNum, ErrDuplicate)
	}
	g.CreatedAt = m.now()
	m.governors[g.IDNum] = g
	return g, nil
}

// GetGovernor returns nil when no governor has idNum.
func (m *Memory) GetGovernor(_ context.Context, idNum string) (*model.Governor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.governors[idNum]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// -------- Events --------

// ListEvents returns govID's events in id order.
func (m *Memory) ListEvents(_ context.Context, govID string) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Event
	for _, id := range sortedKeys(m.events) {
		if e := m.events[id]; e.GovID == govID {
			res = append(res, e)
		}
	}
	return res, nil
}

// CreateEvent assigns the next id. The owner must exist and the code must be unused.
func (m *Memory) CreateEvent(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.governors[e.GovID]; !ok {
		return model.Event{}, fmt.Errorf("governor %s: %w", e.GovID, ErrReference)
	}
	for _, existing := range m.events {
		if existing.EventCode == e.EventCode {
			return model.Event{}, fmt.Errorf("event code: %w", ErrDuplicate)
		}
	}
	m.nextEvent++
	e.ID = m.nextEvent
	e.CreatedAt = m.now()
	m.events[e.ID] = e
	return e, nil
}

// UpdateEvent returns nil when the event is missing or owned by someone else.
func (m *Memory) UpdateEvent(_ context.Context, govID string, id int64, name, date string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.GovID != govID {
		return nil, nil
	}
	e.Name, e.Date = name, date
	m.events[id] = e
	return &e, nil
}

// DeleteEvent drops the event with its students and logs.
func (m *Memory) DeleteEvent(_ context.Context, govID string, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.GovID != govID {
		return false, nil
	}
	delete(m.events, id)
	for sid, s := range m.students {
		if s.EventID != nil && *s.EventID == id {
			delete(m.students, sid)
		}
	}
	for lid, l := range m.logs {
		if l.EventID == id {
			delete(m.logs, lid)
		}
	}
	return true, nil
}

// OwnedEvent returns the event only when govID owns it.
func (m *Memory) OwnedEvent(_ context.Context, govID string, eventID int64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok || e.GovID != govID {
		return nil, nil
	}
	return &e, nil
}

// -------- Students --------

// EventStudentIDs lists the id_nums already linked to the event.
func (m *Memory) EventStudentIDs(_ context.Context, eventID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, id := range sortedKeys(m.students) {
		s := m.students[id]
		if s.EventID != nil && *s.EventID == eventID {
			ids = append(ids, s.IDNum)
		}
	}
	return ids, nil
}

// InsertStudents is all-or-nothing, like the single multi-row INSERT.
func (m *Memory) InsertStudents(_ context.Context, students []model.Student) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct {
		event int64
		idNum string
	}
	taken := make(map[key]bool, len(m.students))
	for _, s := range m.students {
		if s.EventID != nil {
			taken[key{*s.EventID, s.IDNum}] = true
		}
	}
	for _, s := range students {
		if s.IDNum == "" {
			return nil, fmt.Errorf("student id_num empty: %w", ErrInvalidRow)
		}
		if s.EventID == nil {
			continue
		}
		if _, ok := m.events[*s.EventID]; !ok {
			return nil, fmt.Errorf("event %d: %w", *s.EventID, ErrReference)
		}
		k := key{*s.EventID, s.IDNum}
		if taken[k] {
			return nil, fmt.Errorf("student %s: %w", s.IDNum, ErrDuplicate)
		}
		taken[k] = true
	}

	out := make([]model.Student, 0, len(students))
	for _, s := range students {
		m.nextStudent++
		s.ID = m.nextStudent
		s.CreatedAt = m.now()
		if s.EventID != nil {
			eventID := *s.EventID
			s.EventID = &eventID
		}
		m.students[s.ID] = s
		out = append(out, s)
	}
	return out, nil
}

// ListStudents returns the event's students imported by govID.
func (m *Memory) ListStudents(_ context.Context, govID string, eventID int64) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Student
	for _, id := range sortedKeys(m.students) {
		s := m.students[id]
		if s.EventID != nil && *s.EventID == eventID && s.AssignedBy == govID {
			res = append(res, s)
		}
	}
	return res, nil
}

// ToggleAssignment flips is_assigned. Nil means no such student in an event govID owns.
func (m *Memory) ToggleAssignment(_ context.Context, govID, idNum string, eventID int64) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok || e.GovID != govID {
		return nil, nil
	}
	for id, s := range m.students {
		if s.IDNum == idNum && s.EventID != nil && *s.EventID == eventID {
			s.IsAssigned = !s.IsAssigned
			m.students[id] = s
			return &s, nil
		}
	}
	return nil, nil
}

// FindStudents returns every row for idNum with its event, if any.
func (m *Memory) FindStudents(_ context.Context, idNum string) ([]model.StudentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.StudentEvent
	for _, id := range sortedKeys(m.students) {
		s := m.students[id]
		if s.IDNum != idNum {
			continue
		}
		se := model.StudentEvent{Student: s}
		if s.EventID != nil {
			if e, ok := m.events[*s.EventID]; ok {
				se.Event = &e
			}
		}
		res = append(res, se)
	}
	return res, nil
}

// -------- Attendance logs --------

// OpenLog returns the log still missing a time_out, or nil.
func (m *Memory) OpenLog(_ context.Context, studentID, eventID int64) (*model.AttendanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range sortedKeys(m.logs) {
		l := m.logs[id]
		if l.StudentID == studentID && l.EventID == eventID && l.TimeOut == nil {
			return &l, nil
		}
	}
	return nil, nil
}

// InsertLog opens a log for an existing student and event.
func (m *Memory) InsertLog(_ context.Context, l model.AttendanceLog) (model.AttendanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[l.StudentID]
	if !ok {
		return model.AttendanceLog{}, fmt.Errorf("student %d: %w", l.StudentID, ErrReference)
	}
	if _, ok := m.events[l.EventID]; !ok {
		return model.AttendanceLog{}, fmt.Errorf("event %d: %w", l.EventID, ErrReference)
	}
	m.nextLog++
	l.ID = m.nextLog
	l.IDNum = s.IDNum
	m.logs[l.ID] = l
	return l, nil
}

// CloseLog sets time_out once; a missing or closed log yields nil.
func (m *Memory) CloseLog(_ context.Context, logID int64, at time.Time) (*model.AttendanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[logID]
	if !ok || l.TimeOut != nil {
		return nil, nil
	}
	out := at
	l.TimeOut = &out
	m.logs[logID] = l
	return &l, nil
}

// ListLogs returns the event's logs in id order.
func (m *Memory) ListLogs(_ context.Context, eventID int64) ([]model.AttendanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.AttendanceLog
	for _, id := range sortedKeys(m.logs) {
		if l := m.logs[id]; l.EventID == eventID {
			res = append(res, l)
		}
	}
	return res, nil
}

// CreditLog adds a closed log's hours to its student exactly once.
func (m *Memory) CreditLog(_ context.Context, logID int64) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[logID]
	if !ok || l.TimeOut == nil || l.Credited {
		return 0, false, nil
	}
	s, ok := m.students[l.StudentID]
	if !ok {
		return 0, false, nil
	}
	hours := l.Hours()
	l.Credited = true
	m.logs[logID] = l
	s.HoursRender += hours
	m.students[s.ID] = s
	return hours, true, nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
