package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"lyceum/portal/internal/auth"
	"lyceum/portal/internal/level"
	"lyceum/portal/internal/model"
)

type fakeStore struct {
	profile model.Profile
	err     error
	calls   int
}

func (f *fakeStore) GetProfile(_ context.Context, _ string) (model.Profile, error) {
	f.calls++
	return f.profile, f.err
}

func claimsFor(userID string, metadata auth.Metadata) *auth.Claims {
	return &auth.Claims{
		UserID:   userID,
		Email:    "member@example.local",
		Metadata: metadata,
	}
}

func TestResolveProfileWinsOverMetadata(t *testing.T) {
	store := &fakeStore{profile: model.Profile{
		ID:            "u1",
		FullName:      "Stored Name",
		Role:          "staff",
		AcademicLevel: "level_300",
	}}
	resolver := NewResolver(store, time.Second)

	resolved := resolver.Resolve(context.Background(), claimsFor("u1", auth.Metadata{
		Role:          "admin",
		AcademicLevel: "level_100",
		FullName:      "Session Name",
	}))

	if resolved.Role != model.RoleStaff {
		t.Fatalf("expected profile role staff to win, got %s", resolved.Role)
	}
	if resolved.Level != level.Level300 {
		t.Fatalf("expected profile level level_300 to win, got %s", resolved.Level)
	}
	if resolved.DisplayName != "Stored Name" {
		t.Fatalf("expected stored display name, got %s", resolved.DisplayName)
	}
	if resolved.Source != SourceProfile {
		t.Fatalf("expected source profile, got %s", resolved.Source)
	}
}

func TestResolveNotFoundFallsBackToMetadata(t *testing.T) {
	store := &fakeStore{err: pgx.ErrNoRows}
	resolver := NewResolver(store, time.Second)

	resolved := resolver.Resolve(context.Background(), claimsFor("u1", auth.Metadata{
		Role:     "lead",
		FullName: "Session Name",
	}))

	if resolved.Role != model.RoleLead {
		t.Fatalf("expected fallback role lead, got %s", resolved.Role)
	}
	if resolved.DisplayName != "Session Name" {
		t.Fatalf("expected session display name, got %s", resolved.DisplayName)
	}
	if resolved.Source != SourceSessionFallback {
		t.Fatalf("expected source session-fallback, got %s", resolved.Source)
	}
}

func TestResolveLookupErrorFallsBack(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	resolver := NewResolver(store, time.Second)

	resolved := resolver.Resolve(context.Background(), claimsFor("u1", auth.Metadata{Role: "deputy"}))

	if resolved.Role != model.RoleDeputy {
		t.Fatalf("expected fallback role deputy, got %s", resolved.Role)
	}
	if resolved.Source != SourceSessionFallback {
		t.Fatalf("expected source session-fallback, got %s", resolved.Source)
	}
}

func TestResolveDefaultsWhenEverythingAbsent(t *testing.T) {
	store := &fakeStore{err: pgx.ErrNoRows}
	resolver := NewResolver(store, time.Second)

	resolved := resolver.Resolve(context.Background(), claimsFor("u1", auth.Metadata{}))

	if resolved.Role != model.RoleStudent {
		t.Fatalf("expected default role student, got %s", resolved.Role)
	}
	if resolved.Level != level.Student {
		t.Fatalf("expected default level student, got %s", resolved.Level)
	}
	if resolved.DisplayName != "member@example.local" {
		t.Fatalf("expected email display name, got %s", resolved.DisplayName)
	}
	if resolved.Source != SourceDefault {
		t.Fatalf("expected source default, got %s", resolved.Source)
	}
}

func TestResolveUnknownStoredLabelsDefault(t *testing.T) {
	store := &fakeStore{profile: model.Profile{
		ID:            "u1",
		Role:          "superuser",
		AcademicLevel: "year_7",
	}}
	resolver := NewResolver(store, time.Second)

	resolved := resolver.Resolve(context.Background(), claimsFor("u1", auth.Metadata{Role: "admin"}))

	if resolved.Role != model.RoleStudent {
		t.Fatalf("expected unknown stored role to default to student, got %s", resolved.Role)
	}
	if resolved.Level != level.Student {
		t.Fatalf("expected unknown stored level to default to student, got %s", resolved.Level)
	}
	if resolved.Source != SourceProfile {
		t.Fatalf("expected source profile even for defaulted labels, got %s", resolved.Source)
	}
}

func TestResolveEmptyProfileNameFallsThrough(t *testing.T) {
	store := &fakeStore{profile: model.Profile{
		ID:            "u1",
		Role:          "student",
		AcademicLevel: "level_200",
	}}
	resolver := NewResolver(store, time.Second)

	resolved := resolver.Resolve(context.Background(), claimsFor("u1", auth.Metadata{FullName: "Session Name"}))
	if resolved.DisplayName != "Session Name" {
		t.Fatalf("expected session name for empty stored name, got %s", resolved.DisplayName)
	}

	resolved = resolver.Resolve(context.Background(), claimsFor("u1", auth.Metadata{}))
	if resolved.DisplayName != "member@example.local" {
		t.Fatalf("expected email for empty names, got %s", resolved.DisplayName)
	}
}

func TestResolveQueriesOncePerCall(t *testing.T) {
	store := &fakeStore{profile: model.Profile{ID: "u1", Role: "staff", AcademicLevel: "level_100"}}
	resolver := NewResolver(store, time.Second)

	claims := claimsFor("u1", auth.Metadata{})
	resolver.Resolve(context.Background(), claims)
	resolver.Resolve(context.Background(), claims)

	if store.calls != 2 {
		t.Fatalf("expected one lookup per resolution, got %d for 2 calls", store.calls)
	}
}
