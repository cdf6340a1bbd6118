package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"lyceum/portal/internal/auth"
	"lyceum/portal/internal/config"
	"lyceum/portal/internal/eligibility"
	"lyceum/portal/internal/identity"
	"lyceum/portal/internal/level"
	"lyceum/portal/internal/metrics"
	"lyceum/portal/internal/model"
	"lyceum/portal/internal/repository"
)

type Server struct {
	cfg      config.Config
	store    *repository.Store
	resolver *identity.Resolver
	redis    *redis.Client
}

func NewServer(cfg config.Config, store *repository.Store, resolver *identity.Resolver, redisClient *redis.Client) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		redis:    redisClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/login", s.handleSignIn)

	r.Route("/dashboard", func(r chi.Router) {
		r.With(s.sessionOrSignIn, s.resolveIdentity, s.dashboardGuard).Get("/{role}", s.handleDashboard)
	})

	r.With(s.authMiddleware, s.resolveIdentity).Get("/me", s.handleGetMe)
	r.With(s.authMiddleware).Get("/profile", s.handleGetProfile)
	r.With(s.authMiddleware).Patch("/profile", s.handlePatchProfile)

	r.With(s.authMiddleware, s.resolveIdentity, s.requireStaff).Get("/members", s.handleListMembers)
	r.With(s.authMiddleware, s.resolveIdentity, s.requireAdmin).Patch("/members/{userID}/role", s.handleUpdateMemberRole)
	r.With(s.authMiddleware, s.resolveIdentity, s.requireAdmin).Patch("/members/{userID}/level", s.handleUpdateMemberLevel)

	r.With(s.authMiddleware, s.resolveIdentity).Get("/announcements", s.handleListAnnouncements)
	r.With(s.authMiddleware, s.resolveIdentity, s.requireStaff).Post("/announcements", s.handleCreateAnnouncement)

	r.With(s.authMiddleware, s.resolveIdentity).Post("/fyp/access-code", s.handleMintFYPCode)
	r.Get("/fyp/access-code/{code}", s.handleVerifyFYPCode)

	return r
}

// sessionOrSignIn is the dashboard variant of authMiddleware: an absent or
// invalid session is sent to the sign-in route instead of getting a 401, and
// no profile lookup happens for it.
func (s *Server) sessionOrSignIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.redirectToSignIn(w, r)
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			s.redirectToSignIn(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	metrics.GuardRedirects.WithLabelValues("unauthenticated").Inc()
	http.Redirect(w, r, s.cfg.SignInPath, http.StatusFound)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		resolved := s.resolver.Resolve(r.Context(), claims)
		ctx := context.WithValue(r.Context(), resolvedKey{}, &resolved)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// dashboardGuard compares the requested role segment with the resolved role.
// The redirect target is always computed from the resolved role, so a
// mismatched or unknown segment terminates in exactly one redirect: every
// role maps to one canonical dashboard path, and that path matches itself.
func (s *Server) dashboardGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved := resolvedFromContext(r.Context())
		if resolved == nil {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		segment := strings.TrimSpace(strings.ToLower(chi.URLParam(r, "role")))
		if segment != string(resolved.Role) {
			metrics.GuardRedirects.WithLabelValues("role_mismatch").Inc()
			http.Redirect(w, r, "/dashboard/"+string(resolved.Role), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved := resolvedFromContext(r.Context())
		if resolved == nil || (resolved.Role != model.RoleAdmin && resolved.Role != model.RoleStaff) {
			writeError(w, http.StatusForbidden, "staff_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved := resolvedFromContext(r.Context())
		if resolved == nil || resolved.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type signInResponse struct {
	Status    string `json:"status"`
	SignInURL string `json:"signInUrl,omitempty"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, signInResponse{
		Status:    "signed_out",
		SignInURL: s.cfg.IdentityProviderURL,
	})
}

type resolvedSummary struct {
	UserID        string `json:"userId"`
	Role          string `json:"role"`
	AcademicLevel string `json:"academicLevel"`
	DisplayName   string `json:"displayName"`
	Source        string `json:"source"`
}

type eligibilitySummary struct {
	CanAccessFYP bool `json:"canAccessFyp"`
	IsFinalYear  bool `json:"isFinalYear"`
	IsAlumnus    bool `json:"isAlumnus"`
}

type dashboardResponse struct {
	User        resolvedSummary    `json:"user"`
	NextLevel   string             `json:"nextLevel"`
	Eligibility eligibilitySummary `json:"eligibility"`
	Features    []string           `json:"features"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resolved := resolvedFromContext(r.Context())
	gate := eligibility.ForLevel(resolved.Level)
	writeJSON(w, http.StatusOK, dashboardResponse{
		User:        mapResolved(resolved),
		NextLevel:   string(level.Next(resolved.Level)),
		Eligibility: mapEligibility(gate),
		Features:    roleFeatures(resolved.Role),
	})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	resolved := resolvedFromContext(r.Context())
	if resolved == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	writeJSON(w, http.StatusOK, mapResolved(resolved))
}

type profileSummary struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	FullName      string  `json:"fullName"`
	Role          string  `json:"role"`
	AcademicLevel string  `json:"academicLevel"`
	AvatarURL     *string `json:"avatarUrl,omitempty"`
	Bio           *string `json:"bio,omitempty"`
	CreatedAt     int64   `json:"createdOn"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	profile, err := s.store.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapProfile(profile))
}

type patchProfileRequest struct {
	FullName  *string `json:"fullName,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Role and academic level are deliberately not writable here: members cannot
// escalate themselves, only admins can through the member endpoints.
func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req patchProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	update := repository.ProfileUpdate{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name != "" {
			update.FullName = &name
		}
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		update.Bio = &bio
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		update.AvatarURL = &avatar
	}

	profile, err := s.store.UpdateProfile(r.Context(), claims.UserID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	writeJSON(w, http.StatusOK, mapProfile(profile))
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	filter := repository.ProfileFilter{}
	if raw := r.URL.Query().Get("role"); raw != "" {
		if !model.IsValidRole(raw) {
			writeError(w, http.StatusBadRequest, "invalid_role_filter")
			return
		}
		filter.Role = string(model.ParseRole(raw))
	}
	if raw := r.URL.Query().Get("level"); raw != "" {
		if !level.IsValid(raw) {
			writeError(w, http.StatusBadRequest, "invalid_level_filter")
			return
		}
		filter.AcademicLevel = string(level.Parse(raw))
	}

	profiles, err := s.store.ListProfiles(r.Context(), filter, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]profileSummary, 0, len(profiles))
	for _, profile := range profiles {
		resp = append(resp, mapProfile(profile))
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}

	var req updateMemberRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if !model.IsValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	if _, err := s.store.GetProfile(r.Context(), userID); err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	if err := s.store.UpdateRole(r.Context(), userID, string(model.ParseRole(req.Role))); err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	profile, err := s.store.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	writeJSON(w, http.StatusOK, mapProfile(profile))
}

type updateMemberLevelRequest struct {
	Level   string `json:"level,omitempty"`
	Promote bool   `json:"promote,omitempty"`
}

func (s *Server) handleUpdateMemberLevel(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}

	var req updateMemberLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	profile, err := s.store.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}

	var target level.Level
	switch {
	case req.Promote && req.Level == "":
		target = level.Next(level.Parse(profile.AcademicLevel))
	case req.Level != "" && !req.Promote:
		if !level.IsValid(req.Level) {
			writeError(w, http.StatusBadRequest, "invalid_level")
			return
		}
		target = level.Parse(req.Level)
	default:
		writeError(w, http.StatusBadRequest, "level_or_promote_required")
		return
	}

	if err := s.store.UpdateAcademicLevel(r.Context(), userID, string(target)); err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	profile, err = s.store.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	writeJSON(w, http.StatusOK, mapProfile(profile))
}

type announcementSummary struct {
	ID        string `json:"id"`
	AuthorID  string `json:"authorId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"createdOn"`
}

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	announcements, err := s.store.ListAnnouncements(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]announcementSummary, 0, len(announcements))
	for _, announcement := range announcements {
		resp = append(resp, announcementSummary{
			ID:        announcement.ID,
			AuthorID:  announcement.AuthorID,
			Title:     announcement.Title,
			Body:      announcement.Body,
			CreatedAt: announcement.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type createAnnouncementRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	resolved := resolvedFromContext(r.Context())

	var req createAnnouncementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	announcement := model.Announcement{
		ID:        uuid.NewString(),
		AuthorID:  resolved.UserID,
		Title:     req.Title,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAnnouncement(r.Context(), announcement); err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, announcementSummary{
		ID:        announcement.ID,
		AuthorID:  announcement.AuthorID,
		Title:     announcement.Title,
		Body:      announcement.Body,
		CreatedAt: announcement.CreatedAt.Unix(),
	})
}

type fypCodeResponse struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expiresIn"`
}

// handleMintFYPCode issues a short-lived code that external final-year
// features verify before unlocking. The code is a grant artifact, not an
// authorization input: eligibility is re-checked from the resolved level on
// every mint.
func (s *Server) handleMintFYPCode(w http.ResponseWriter, r *http.Request) {
	resolved := resolvedFromContext(r.Context())
	gate := eligibility.ForLevel(resolved.Level)
	if !gate.CanAccessFYP() {
		writeError(w, http.StatusForbidden, "fyp_not_available")
		return
	}
	if s.redis == nil {
		writeError(w, http.StatusServiceUnavailable, "redis_not_configured")
		return
	}

	code := uuid.NewString()
	if err := s.redis.Set(r.Context(), fypCodeKey(code), resolved.UserID, s.cfg.FYPCodeTTL).Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, fypCodeResponse{
		Code:      code,
		ExpiresIn: int64(s.cfg.FYPCodeTTL.Seconds()),
	})
}

func (s *Server) handleVerifyFYPCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code")
		return
	}
	if s.redis == nil {
		writeError(w, http.StatusServiceUnavailable, "redis_not_configured")
		return
	}

	userID, err := s.redis.Get(r.Context(), fypCodeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			writeError(w, http.StatusNotFound, "code_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "valid", "userId": userID})
}

func fypCodeKey(code string) string {
	return "fyp:code:" + code
}

func roleFeatures(role model.Role) []string {
	switch role {
	case model.RoleAdmin:
		return []string{"members", "announcements", "role-management", "level-management"}
	case model.RoleStaff:
		return []string{"members", "announcements"}
	case model.RoleLead, model.RoleDeputy:
		return []string{"announcements", "cohort-overview"}
	default:
		return []string{"announcements", "profile"}
	}
}

func mapResolved(resolved *identity.Resolved) resolvedSummary {
	return resolvedSummary{
		UserID:        resolved.UserID,
		Role:          string(resolved.Role),
		AcademicLevel: string(resolved.Level),
		DisplayName:   resolved.DisplayName,
		Source:        string(resolved.Source),
	}
}

func mapEligibility(gate eligibility.Gate) eligibilitySummary {
	return eligibilitySummary{
		CanAccessFYP: gate.CanAccessFYP(),
		IsFinalYear:  gate.IsFinalYear(),
		IsAlumnus:    gate.IsAlumnus(),
	}
}

func mapProfile(profile model.Profile) profileSummary {
	return profileSummary{
		ID:            profile.ID,
		Email:         profile.Email,
		FullName:      profile.FullName,
		Role:          profile.Role,
		AcademicLevel: profile.AcademicLevel,
		AvatarURL:     profile.AvatarURL,
		Bio:           profile.Bio,
		CreatedAt:     profile.CreatedAt.Unix(),
	}
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

type resolvedKey struct{}

func resolvedFromContext(ctx context.Context) *identity.Resolved {
	value := ctx.Value(resolvedKey{})
	resolved, _ := value.(*identity.Resolved)
	return resolved
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
