package model

import "time"

// Governor is an administrator who owns events and imports rosters.
type Governor struct {
	IDNum      string    `json:"id_num"`
	Name       string    `json:"name"`
	CollegeDep string    `json:"college_dep"`
	Password   string    `json:"-"` // bcrypt hash
	CreatedAt  time.Time `json:"created_at"`
}

// GovernorView is the public projection of a governor.
type GovernorView struct {
	IDNum      string `json:"id_num"`
	Name       string `json:"name"`
	CollegeDep string `json:"college_dep"`
}

// View drops the password hash.
func (g Governor) View() GovernorView {
	return GovernorView{IDNum: g.IDNum, Name: g.Name, CollegeDep: g.CollegeDep}
}

// Event is an activity owned by one governor. Date is free text.
type Event struct {
	ID        int64     `json:"id"`
	EventCode string    `json:"event_code"`
	GovID     string    `json:"gov_id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// Student is a roster entry under one event.
type Student struct {
	ID          int64     `json:"id"`
	IDNum       string    `json:"id_num"`
	Name        string    `json:"name"`
	Program     string    `json:"program"`
	IsAssigned  bool      `json:"is_assigned"`
	EventID     *int64    `json:"event_id"`
	AssignedBy  string    `json:"assigned_by"`
	HoursRender float64   `json:"hours_render"`
	CreatedAt   time.Time `json:"created_at"`
}

// StudentEvent pairs a student with its linked event, if any.
type StudentEvent struct {
	Student Student
	Event   *Event
}

// AttendanceLog records one time-in and optional time-out of a student.
type AttendanceLog struct {
	ID        int64      `json:"id"`
	StudentID int64      `json:"student_id"`
	EventID   int64      `json:"event_id"`
	IDNum     string     `json:"id_num,omitempty"` // joined from students
	TimeIn    time.Time  `json:"time_in"`
	TimeOut   *time.Time `json:"time_out,omitempty"`
	Credited  bool       `json:"credited"`
}

// Hours is the rendered duration of a closed log.
func (l AttendanceLog) Hours() float64 {
	if l.TimeOut == nil || l.TimeOut.Before(l.TimeIn) {
		return 0
	}
	return l.TimeOut.Sub(l.TimeIn).Hours()
}
