// Package eligibility answers the feature-gating questions views ask about a
// resolved academic level.
package eligibility

import "lyceum/portal/internal/level"

type Gate struct {
	level level.Level
}

func ForLevel(l level.Level) Gate {
	return Gate{level: l}
}

func (g Gate) CanAccessFYP() bool {
	return level.IsEligibleForFYP(g.level)
}

func (g Gate) IsFinalYear() bool {
	return level.IsFinalYearStudent(g.level)
}

func (g Gate) IsAlumnus() bool {
	return level.IsAlumni(g.level)
}

func (g Gate) CanAccessLevel(required level.Level) bool {
	return level.HasAccess(g.level, required)
}
