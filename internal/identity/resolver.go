// Package identity resolves the authoritative role, academic level and
// display name for the current session. A stored profile always wins over
// session metadata; session metadata is a bootstrap fallback for accounts
// whose profile row is missing or unreadable.
package identity

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"lyceum/portal/internal/auth"
	"lyceum/portal/internal/level"
	"lyceum/portal/internal/metrics"
	"lyceum/portal/internal/model"
)

type Source string

const (
	SourceProfile         Source = "profile"
	SourceSessionFallback Source = "session-fallback"
	SourceDefault         Source = "default"
)

// Resolved is computed once per request and never cached across requests, so
// a role or level change lands on the very next navigation.
type Resolved struct {
	UserID      string
	Role        model.Role
	Level       level.Level
	DisplayName string
	Source      Source
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
}

type Resolver struct {
	store         ProfileStore
	lookupTimeout time.Duration
}

func NewResolver(store ProfileStore, lookupTimeout time.Duration) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = 3 * time.Second
	}
	return &Resolver{store: store, lookupTimeout: lookupTimeout}
}

// Resolve turns validated session claims into a Resolved identity. It never
// fails: a missing or unreadable profile degrades to session metadata, and
// unknown labels degrade to the student defaults. Callers must have rejected
// unauthenticated requests before calling.
func (r *Resolver) Resolve(ctx context.Context, claims *auth.Claims) Resolved {
	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	profile, err := r.store.GetProfile(lookupCtx, claims.UserID)
	if err == nil {
		return Resolved{
			UserID:      claims.UserID,
			Role:        parseRole(profile.Role, claims.UserID),
			Level:       parseLevel(profile.AcademicLevel, claims.UserID),
			DisplayName: firstNonEmpty(profile.FullName, claims.Metadata.FullName, claims.Email),
			Source:      SourceProfile,
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("identity: no profile for user %s, using session fallback", claims.UserID)
	} else {
		log.Printf("identity: profile lookup failed for user %s: %v", claims.UserID, err)
	}
	metrics.ProfileLookupFailures.Inc()
	metrics.FallbackResolutions.Inc()

	resolved := Resolved{
		UserID:      claims.UserID,
		Role:        model.RoleStudent,
		Level:       level.Student,
		DisplayName: firstNonEmpty(claims.Metadata.FullName, claims.Email),
		Source:      SourceDefault,
	}
	if claims.Metadata.Role != "" || claims.Metadata.AcademicLevel != "" {
		resolved.Role = parseRole(claims.Metadata.Role, claims.UserID)
		resolved.Level = parseLevel(claims.Metadata.AcademicLevel, claims.UserID)
		resolved.Source = SourceSessionFallback
	}
	return resolved
}

func parseRole(raw, userID string) model.Role {
	if raw != "" && !model.IsValidRole(raw) {
		log.Printf("identity: unknown role label %q for user %s, defaulting to student", raw, userID)
		metrics.UnknownLabels.WithLabelValues("role").Inc()
	}
	return model.ParseRole(raw)
}

func parseLevel(raw, userID string) level.Level {
	if raw != "" && !level.IsValid(raw) {
		log.Printf("identity: unknown academic level label %q for user %s, defaulting to student", raw, userID)
		metrics.UnknownLabels.WithLabelValues("academic_level").Inc()
	}
	return level.Parse(raw)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
