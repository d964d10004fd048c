package testmetrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrResultNotFound = errors.New("testing result not found")

// Result is a measured athletic test, one row per (player, metric),
// e.g. 40yd dash, vertical jump, broad jump.
type Result struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	TestedAt   time.Time `json:"tested_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Upsert(ctx context.Context, res Result) (*Result, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testmetrics.repo.upsert")
	defer span.End()

	if res.TestedAt.IsZero() {
		res.TestedAt = time.Now()
	}

	rows, err := r.db.Query(ctx,
		`INSERT INTO player_testing (player_id, metric_name, value, unit, tested_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (player_id, metric_name)
		 DO UPDATE SET value = EXCLUDED.value, unit = EXCLUDED.unit, tested_at = EXCLUDED.tested_at
		 RETURNING *`,
		res.PlayerID, res.MetricName, res.Value, res.Unit, res.TestedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert testing result: %w", err)
	}

	upserted, err := rows2results(rows)
	if err != nil {
		return nil, err
	}
	if len(upserted) == 0 {
		return nil, errors.New("unexpected upsert result")
	}
	return &upserted[0], nil
}

func (r *Repo) ListForPlayer(ctx context.Context, playerID string) ([]Result, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testmetrics.repo.listForPlayer")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM player_testing WHERE player_id = $1 ORDER BY metric_name`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list testing results: %w", err)
	}

	return rows2results(rows)
}

func (r *Repo) ListForTeam(ctx context.Context, teamID string) ([]Result, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testmetrics.repo.listForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT pt.* FROM player_testing pt
		 JOIN players p ON p.id = pt.player_id
		 WHERE p.team_id = $1
		 ORDER BY pt.player_id, pt.metric_name`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list team testing results: %w", err)
	}

	return rows2results(rows)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "testmetrics.repo.delete")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM player_testing WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete testing result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResultNotFound
	}
	return nil
}

func rows2results(rows pgx.Rows) ([]Result, error) {
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var res Result
		if err := rows.Scan(
			&res.ID, &res.PlayerID, &res.MetricName, &res.Value, &res.Unit,
			&res.TestedAt, &res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan testing result row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("testing result rows: %w", err)
	}

	return results, nil
}
