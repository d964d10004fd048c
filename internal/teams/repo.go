package teams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTeamNotFound = errors.New("team not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, t Team) (*Team, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "teams.repo.add")
	defer span.End()

	if len(t.DashboardConfig) == 0 {
		t.DashboardConfig = json.RawMessage(`{}`)
	}

	rows, err := r.db.Query(ctx,
		`INSERT INTO teams (coach_id, name, sport, dashboard_config)
		 VALUES ($1, $2, $3, $4)
		 RETURNING *`,
		t.CoachID, t.Name, t.Sport, t.DashboardConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}

	added, err := rows2teams(rows)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, errors.New("unexpected insert result")
	}
	return &added[0], nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Team, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "teams.repo.get")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT * FROM teams WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}

	found, err := rows2teams(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrTeamNotFound
	}
	return &found[0], nil
}

// GetForCoach fetches a team only when the coach owns it.
func (r *Repo) GetForCoach(ctx context.Context, id, coachID string) (*Team, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "teams.repo.getForCoach")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM teams WHERE id = $1 AND coach_id = $2`,
		id, coachID,
	)
	if err != nil {
		return nil, fmt.Errorf("get team for coach: %w", err)
	}

	found, err := rows2teams(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrTeamNotFound
	}
	return &found[0], nil
}

func (r *Repo) ListForCoach(ctx context.Context, coachID string) ([]Team, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "teams.repo.listForCoach")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM teams WHERE coach_id = $1 ORDER BY created_at`,
		coachID,
	)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	return rows2teams(rows)
}

type Update struct {
	Name            *string         `json:"name"`
	Sport           *string         `json:"sport"`
	DashboardConfig json.RawMessage `json:"dashboard_config"`
}

func (r *Repo) Update(ctx context.Context, id, coachID string, u Update) (*Team, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "teams.repo.update")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`UPDATE teams SET
			name = COALESCE($3, name),
			sport = COALESCE($4, sport),
			dashboard_config = COALESCE($5, dashboard_config)
		 WHERE id = $1 AND coach_id = $2
		 RETURNING *`,
		id, coachID, u.Name, u.Sport, u.DashboardConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}

	updated, err := rows2teams(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrTeamNotFound
	}
	return &updated[0], nil
}

func (r *Repo) Delete(ctx context.Context, id, coachID string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "teams.repo.delete")
	defer span.End()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM teams WHERE id = $1 AND coach_id = $2`,
		id, coachID,
	)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func rows2teams(rows pgx.Rows) ([]Team, error) {
	defer rows.Close()

	teams := []Team{}
	for rows.Next() {
		var t Team
		if err := rows.Scan(
			&t.ID, &t.CoachID, &t.Name, &t.Sport, &t.DashboardConfig, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("team rows: %w", err)
	}

	return teams, nil
}
