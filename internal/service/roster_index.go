package service

import (
	"strings"

	"github.com/noah-isme/rollcall-ledger/internal/models"
)

// SearchRoster returns the students whose name or roll number contains query, ignoring case.
// Roster order is preserved and an empty query returns every student. Whitespace in the
// query is significant.
func SearchRoster(students []models.Student, query string) []models.Student {
	needle := strings.ToLower(query)
	result := make([]models.Student, 0, len(students))
	for _, student := range students {
		if needle == "" ||
			strings.Contains(strings.ToLower(student.Name), needle) ||
			strings.Contains(strings.ToLower(student.RollNum), needle) {
			result = append(result, student)
		}
	}
	return result
}

// FilterByStatus keeps the students with the given status, in roster order.
func FilterByStatus(students []models.Student, status models.StudentStatus) []models.Student {
	result := make([]models.Student, 0, len(students))
	for _, student := range students {
		if student.Status == status {
			result = append(result, student)
		}
	}
	return result
}

// SummarizeRoster counts students per status.
func SummarizeRoster(students []models.Student) models.RosterSummary {
	summary := models.RosterSummary{Total: len(students)}
	for _, student := range students {
		if student.IsActive() {
			summary.Active++
		} else {
			summary.Inactive++
		}
	}
	return summary
}
