package maxes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMaxNotFound = errors.New("player max not found")

// PlayerMax is one tested rep max, one row per (player, exercise).
type PlayerMax struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Exercise  string    `json:"exercise"`
	Weight    float64   `json:"weight"`
	TestedAt  time.Time `json:"tested_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Upsert(ctx context.Context, m PlayerMax) (*PlayerMax, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "maxes.repo.upsert")
	defer span.End()

	if m.TestedAt.IsZero() {
		m.TestedAt = time.Now()
	}

	rows, err := r.db.Query(ctx,
		`INSERT INTO player_maxes (player_id, exercise, weight, tested_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (player_id, exercise)
		 DO UPDATE SET weight = EXCLUDED.weight, tested_at = EXCLUDED.tested_at
		 RETURNING *`,
		m.PlayerID, m.Exercise, m.Weight, m.TestedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert player max: %w", err)
	}

	upserted, err := rows2maxes(rows)
	if err != nil {
		return nil, err
	}
	if len(upserted) == 0 {
		return nil, errors.New("unexpected upsert result")
	}
	return &upserted[0], nil
}

func (r *Repo) ListForPlayer(ctx context.Context, playerID string) ([]PlayerMax, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "maxes.repo.listForPlayer")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM player_maxes WHERE player_id = $1 ORDER BY exercise`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list player maxes: %w", err)
	}

	return rows2maxes(rows)
}

func (r *Repo) ListForTeam(ctx context.Context, teamID string) ([]PlayerMax, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "maxes.repo.listForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT pm.* FROM player_maxes pm
		 JOIN players p ON p.id = pm.player_id
		 WHERE p.team_id = $1
		 ORDER BY pm.player_id, pm.exercise`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list team maxes: %w", err)
	}

	return rows2maxes(rows)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "maxes.repo.delete")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM player_maxes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete player max: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMaxNotFound
	}
	return nil
}

func rows2maxes(rows pgx.Rows) ([]PlayerMax, error) {
	defer rows.Close()

	maxes := []PlayerMax{}
	for rows.Next() {
		var m PlayerMax
		if err := rows.Scan(
			&m.ID, &m.PlayerID, &m.Exercise, &m.Weight, &m.TestedAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan player max row: %w", err)
		}
		maxes = append(maxes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("player max rows: %w", err)
	}

	return maxes, nil
}
