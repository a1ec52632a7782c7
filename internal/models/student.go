package models

import "time"

// StudentStatus marks whether a student takes part in daily attendance.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	return s == StudentStatusActive || s == StudentStatusInactive
}

// Student represents a learner on the roster.
type Student struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	RollNum   string        `db:"roll_num" json:"roll_num"`
	Status    StudentStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// IsActive reports whether attendance may be marked for the student.
func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive
}

// StudentFilter narrows an in-memory roster listing.
type StudentFilter struct {
	Search   string
	Status   *StudentStatus
	Page     int
	PageSize int
}

// RosterSummary holds simple roster counts.
type RosterSummary struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// MatchKind is the outcome of resolving a roll number.
type MatchKind string

const (
	MatchFound    MatchKind = "found"
	MatchNotFound MatchKind = "not_found"
	MatchInactive MatchKind = "inactive"
)

// RollMatch is the result of resolving a roll number against a roster snapshot.
// Student is set for MatchFound and MatchInactive.
type RollMatch struct {
	Kind       MatchKind `json:"kind"`
	Student    *Student  `json:"student,omitempty"`
	Ambiguous  bool      `json:"ambiguous"`
	Candidates int       `json:"candidates"`
}
