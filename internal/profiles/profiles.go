package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	RoleCoach  = "coach"
	RolePlayer = "player"
)

var ErrProfileNotFound = errors.New("profile not found")

type Profile struct {
	ID          string    `json:"id"`
	Email       *string   `json:"email"`
	DisplayName *string   `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// GetOrCreate returns the profile row for an auth user, creating a
// default coach profile on first sight.
func (r *Repo) GetOrCreate(ctx context.Context, userID string) (*Profile, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "profiles.repo.getOrCreate")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`INSERT INTO profiles (id, role) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET id = profiles.id
		 RETURNING *`,
		userID, RoleCoach,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}

	found, err := rows2profiles(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrProfileNotFound
	}
	return &found[0], nil
}

type Update struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
}

func (r *Repo) Update(ctx context.Context, userID string, u Update) (*Profile, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "profiles.repo.update")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`UPDATE profiles SET
			email = COALESCE($2, email),
			display_name = COALESCE($3, display_name),
			role = COALESCE($4, role)
		 WHERE id = $1
		 RETURNING *`,
		userID, u.Email, u.DisplayName, u.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	updated, err := rows2profiles(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrProfileNotFound
	}
	return &updated[0], nil
}

func rows2profiles(rows pgx.Rows) ([]Profile, error) {
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile rows: %w", err)
	}

	return profiles, nil
}
