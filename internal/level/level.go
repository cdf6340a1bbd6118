// Package level defines the academic level ladder and the ordinal
// comparisons used for level-gated features.
package level

import "strings"

type Level string

const (
	Student  Level = "student"
	Level100 Level = "level_100"
	Level200 Level = "level_200"
	Level300 Level = "level_300"
	Level400 Level = "level_400"
	Alumni   Level = "alumni"
)

var ranks = map[Level]int{
	Student:  0,
	Level100: 100,
	Level200: 200,
	Level300: 300,
	Level400: 400,
	Alumni:   999,
}

var successors = map[Level]Level{
	Student:  Level100,
	Level100: Level200,
	Level200: Level300,
	Level300: Level400,
	Level400: Alumni,
}

// Parse maps a stored label to a Level. Unrecognized labels map to Student.
func Parse(raw string) Level {
	l := Level(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := ranks[l]; !ok {
		return Student
	}
	return l
}

func IsValid(raw string) bool {
	_, ok := ranks[Level(strings.TrimSpace(strings.ToLower(raw)))]
	return ok
}

func Rank(l Level) int {
	return ranks[l]
}

// HasAccess reports whether userLevel sits at or above required on the ladder.
func HasAccess(userLevel, required Level) bool {
	return Rank(userLevel) >= Rank(required)
}

// Next returns the successor on the ladder. Alumni and unrecognized levels
// map to themselves.
func Next(l Level) Level {
	if next, ok := successors[l]; ok {
		return next
	}
	return l
}

// IsEligibleForFYP reports final-year-project eligibility. This is an exact
// match on Level400, not a ladder check: alumni are not eligible.
func IsEligibleForFYP(l Level) bool {
	return l == Level400
}

func IsFinalYearStudent(l Level) bool {
	return l == Level400
}

func IsAlumni(l Level) bool {
	return l == Alumni
}
