package models

import "time"

// ServiceMetrics is a lightweight snapshot of process counters.
type ServiceMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	LedgerMarks              uint64    `json:"ledger_marks"`
	LedgerConflicts          uint64    `json:"ledger_conflicts"`
	LedgerFailures           uint64    `json:"ledger_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
