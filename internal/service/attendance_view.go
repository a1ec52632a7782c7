package service

import (
	"github.com/noah-isme/rollcall-ledger/internal/models"
)

// ProjectAttendance maps every active student to their effective status for one day.
// Students without a record are pending; records for students outside the set are ignored.
func ProjectAttendance(active []models.Student, day []models.AttendanceRecord) map[string]models.EffectiveStatus {
	ledger := models.NewDayLedger(day)
	view := make(map[string]models.EffectiveStatus, len(active))
	for _, student := range active {
		if !student.IsActive() {
			continue
		}
		view[student.ID] = models.Effective(ledger.Lookup(student.ID))
	}
	return view
}

// SummarizeDay counts effective statuses in a projected view.
func SummarizeDay(view map[string]models.EffectiveStatus) models.DaySummary {
	summary := models.DaySummary{Total: len(view)}
	for _, status := range view {
		switch status {
		case models.EffectiveStatus(models.AttendanceStatusPresent):
			summary.Present++
		case models.EffectiveStatus(models.AttendanceStatusAbsent):
			summary.Absent++
		case models.EffectiveStatus(models.AttendanceStatusLate):
			summary.Late++
		default:
			summary.Pending++
		}
	}
	return summary
}

// buildDayView orders the projection by roster order for presentation.
func buildDayView(date string, roster []models.Student, day []models.AttendanceRecord) *models.DayView {
	active := FilterByStatus(roster, models.StudentStatusActive)
	projection := ProjectAttendance(active, day)
	entries := make([]models.DayViewEntry, 0, len(active))
	for _, student := range active {
		entries = append(entries, models.DayViewEntry{Student: student, Status: projection[student.ID]})
	}
	return &models.DayView{
		Date:    date,
		Entries: entries,
		Summary: SummarizeDay(projection),
	}
}
