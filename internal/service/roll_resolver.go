package service

import (
	"strings"

	"github.com/noah-isme/rollcall-ledger/internal/models"
)

// ResolveRoll matches a typed roll number against a roster snapshot.
//
// Comparison is case-insensitive on the trimmed input. When several students share the roll
// number the first one in roster order is chosen and the match is flagged as ambiguous.
// The chosen student's status decides between MatchFound and MatchInactive.
func ResolveRoll(input string, roster []models.Student) models.RollMatch {
	roll := strings.TrimSpace(input)
	if roll == "" {
		return models.RollMatch{Kind: models.MatchNotFound}
	}

	var first *models.Student
	candidates := 0
	for i := range roster {
		if !strings.EqualFold(strings.TrimSpace(roster[i].RollNum), roll) {
			continue
		}
		candidates++
		if first == nil {
			chosen := roster[i]
			first = &chosen
		}
	}
	if first == nil {
		return models.RollMatch{Kind: models.MatchNotFound}
	}

	kind := models.MatchFound
	if !first.IsActive() {
		kind = models.MatchInactive
	}
	return models.RollMatch{
		Kind:       kind,
		Student:    first,
		Ambiguous:  candidates > 1,
		Candidates: candidates,
	}
}
