package level

import "testing"

var allLevels = []Level{Student, Level100, Level200, Level300, Level400, Alumni}

func TestHasAccessReflexive(t *testing.T) {
	for _, l := range allLevels {
		if !HasAccess(l, l) {
			t.Fatalf("expected %s to access its own level", l)
		}
	}
}

func TestHasAccessTransitive(t *testing.T) {
	for _, a := range allLevels {
		for _, b := range allLevels {
			for _, c := range allLevels {
				if HasAccess(a, b) && HasAccess(b, c) && !HasAccess(a, c) {
					t.Fatalf("expected transitivity: %s >= %s >= %s", a, b, c)
				}
			}
		}
	}
}

func TestHasAccessOrdering(t *testing.T) {
	if HasAccess(Level100, Level200) {
		t.Fatalf("expected level_100 to be denied level_200 access")
	}
	if !HasAccess(Level400, Level300) {
		t.Fatalf("expected level_400 to have level_300 access")
	}
	if !HasAccess(Alumni, Level400) {
		t.Fatalf("expected alumni to have level_400 access")
	}
}

func TestNext(t *testing.T) {
	chain := map[Level]Level{
		Student:  Level100,
		Level100: Level200,
		Level200: Level300,
		Level300: Level400,
		Level400: Alumni,
		Alumni:   Alumni,
	}
	for from, expect := range chain {
		if got := Next(from); got != expect {
			t.Fatalf("expected Next(%s) = %s, got %s", from, expect, got)
		}
	}
	if got := Next(Level("bogus")); got != Level("bogus") {
		t.Fatalf("expected unrecognized level to map to itself, got %s", got)
	}
}

func TestFYPEligibilityIsExact(t *testing.T) {
	for _, l := range allLevels {
		expect := l == Level400
		if IsEligibleForFYP(l) != expect {
			t.Fatalf("expected IsEligibleForFYP(%s) = %v", l, expect)
		}
		if IsFinalYearStudent(l) != expect {
			t.Fatalf("expected IsFinalYearStudent(%s) = %v", l, expect)
		}
	}
	if IsEligibleForFYP(Alumni) {
		t.Fatalf("expected alumni to be past final-year-project eligibility")
	}
}

func TestIsAlumni(t *testing.T) {
	if !IsAlumni(Alumni) {
		t.Fatalf("expected alumni to be alumni")
	}
	if IsAlumni(Level400) {
		t.Fatalf("expected level_400 not to be alumni")
	}
}

func TestParse(t *testing.T) {
	cases := map[string]Level{
		"level_400": Level400,
		"LEVEL_200": Level200,
		" alumni ":  Alumni,
		"student":   Student,
		"":          Student,
		"year_5":    Student,
	}
	for input, expect := range cases {
		if got := Parse(input); got != expect {
			t.Fatalf("expected Parse(%q) = %s, got %s", input, expect, got)
		}
	}
}

func TestRankUnknownIsZero(t *testing.T) {
	if got := Rank(Level("bogus")); got != 0 {
		t.Fatalf("expected unknown level rank 0, got %d", got)
	}
	if got := Rank(Alumni); got != 999 {
		t.Fatalf("expected alumni rank 999, got %d", got)
	}
}
