package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"lyceum/portal/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	var profile model.Profile
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, academic_level, avatar_url, bio, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, userID)
	err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.Role,
		&profile.AcademicLevel,
		&profile.AvatarURL,
		&profile.Bio,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	return profile, err
}

type ProfileUpdate struct {
	FullName  *string
	Bio       *string
	AvatarURL *string
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (model.Profile, error) {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET full_name = COALESCE($1, full_name),
		    bio = COALESCE($2, bio),
		    avatar_url = COALESCE($3, avatar_url),
		    updated_at = now()
		WHERE id = $4
	`, update.FullName, update.Bio, update.AvatarURL, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *Store) UpdateRole(ctx context.Context, userID, role string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles SET role = $1, updated_at = now() WHERE id = $2
	`, role, userID)
	return err
}

func (s *Store) UpdateAcademicLevel(ctx context.Context, userID, academicLevel string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles SET academic_level = $1, updated_at = now() WHERE id = $2
	`, academicLevel, userID)
	return err
}

type ProfileFilter struct {
	Role          string
	AcademicLevel string
}

func (s *Store) ListProfiles(ctx context.Context, filter ProfileFilter, limit int) ([]model.Profile, error) {
	query := `
		SELECT id, email, full_name, role, academic_level, avatar_url, bio, created_at, updated_at
		FROM profiles
	`
	args := []interface{}{}
	conds := []string{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.AcademicLevel != "" {
		args = append(args, filter.AcademicLevel)
		conds = append(conds, fmt.Sprintf("academic_level = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY full_name LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var profile model.Profile
		if err := rows.Scan(
			&profile.ID,
			&profile.Email,
			&profile.FullName,
			&profile.Role,
			&profile.AcademicLevel,
			&profile.AvatarURL,
			&profile.Bio,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (s *Store) CreateAnnouncement(ctx context.Context, announcement model.Announcement) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO announcements (id, author_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, announcement.ID, announcement.AuthorID, announcement.Title, announcement.Body, announcement.CreatedAt)
	return err
}

func (s *Store) ListAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, author_id, title, body, created_at
		FROM announcements
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var announcements []model.Announcement
	for rows.Next() {
		var announcement model.Announcement
		if err := rows.Scan(&announcement.ID, &announcement.AuthorID, &announcement.Title, &announcement.Body, &announcement.CreatedAt); err != nil {
			return nil, err
		}
		announcements = append(announcements, announcement)
	}
	return announcements, rows.Err()
}
