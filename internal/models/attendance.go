package models

import (
	"strings"
	"time"
)

// DateLayout is the wire format of attendance dates.
const DateLayout = "2006-01-02"

// AttendanceStatus is a persisted attendance value.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// ParseAttendanceStatus normalises raw input. "pending" is not a storable status.
func ParseAttendanceStatus(raw string) (AttendanceStatus, bool) {
	status := AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// EffectiveStatus is the status shown for a student on a date.
type EffectiveStatus string

// EffectiveStatusPending means no record exists yet. It is never persisted.
const EffectiveStatusPending EffectiveStatus = "pending"

// Effective derives the shown status from a ledger lookup.
func Effective(status AttendanceStatus, ok bool) EffectiveStatus {
	if !ok {
		return EffectiveStatusPending
	}
	return EffectiveStatus(status)
}

// AttendanceRecord is one ledger row. StudentID is a back-link; the ledger does not own students.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter is an equality conjunction over ledger fields. Zero values are ignored.
type AttendanceFilter struct {
	StudentID string
	Date      *time.Time
}

// DayLedger indexes one day's records by student.
type DayLedger struct {
	byStudent map[string]AttendanceRecord
}

// NewDayLedger indexes records. If a key somehow holds several rows, the most recently updated wins.
func NewDayLedger(records []AttendanceRecord) DayLedger {
	idx := make(map[string]AttendanceRecord, len(records))
	for _, rec := range records {
		if prev, ok := idx[rec.StudentID]; ok && !supersedes(rec, prev) {
			continue
		}
		idx[rec.StudentID] = rec
	}
	return DayLedger{byStudent: idx}
}

// LatestRecord picks the row a DayLedger would show among rows sharing one key.
func LatestRecord(records []AttendanceRecord) (AttendanceRecord, bool) {
	if len(records) == 0 {
		return AttendanceRecord{}, false
	}
	latest := records[0]
	for _, rec := range records[1:] {
		if supersedes(rec, latest) {
			latest = rec
		}
	}
	return latest, true
}

// supersedes reports whether rec replaces prev; later rows win ties.
func supersedes(rec, prev AttendanceRecord) bool {
	return !prev.UpdatedAt.After(rec.UpdatedAt)
}

// Lookup returns the persisted status for studentID, or ok=false when none exists.
func (d DayLedger) Lookup(studentID string) (AttendanceStatus, bool) {
	rec, ok := d.byStudent[studentID]
	if !ok {
		return "", false
	}
	return rec.Status, true
}

// MarkResult reports a ledger write and the day re-fetched after it.
type MarkResult struct {
	Record  AttendanceRecord   `json:"record"`
	Created bool               `json:"created"`
	Changed bool               `json:"changed"`
	Day     []AttendanceRecord `json:"-"`
	Stale   bool               `json:"stale"`
}

// DaySummary counts effective statuses over a day view.
type DaySummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// NormalizeDate drops the time of day, keeping the calendar date as seen in t's location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(t), nil
}

// DayViewEntry is one active student's effective status.
type DayViewEntry struct {
	Student Student         `json:"student"`
	Status  EffectiveStatus `json:"status"`
}

// DayView is the per-date projection over the active roster.
type DayView struct {
	Date    string         `json:"date"`
	Entries []DayViewEntry `json:"entries"`
	Summary DaySummary     `json:"summary"`
}

// MarkOutcome is returned by both intake paths. View is nil when the post-write refresh failed.
type MarkOutcome struct {
	Record    AttendanceRecord `json:"record"`
	Created   bool             `json:"created"`
	Changed   bool             `json:"changed"`
	Stale     bool             `json:"stale"`
	Student   *Student         `json:"student,omitempty"`
	Ambiguous bool             `json:"ambiguous"`
	View      *DayView         `json:"view,omitempty"`
}
