package vbt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRawSetNotFound = errors.New("raw set not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// SaveIngest persists one device upload atomically: the raw set, its
// reps, the computed summary, and the processed mark.
func (r *Repo) SaveIngest(
	ctx context.Context,
	rawSet RawSet,
	reps []Rep,
	summary SetSummary,
) (*SetSummary, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.saveIngest")
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var rawSetID string
	err = tx.QueryRow(ctx,
		`INSERT INTO vbt_raw_sets (player_id, team_id, exercise, device_id, samples, processed)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id`,
		rawSet.PlayerID, rawSet.TeamID, rawSet.Exercise, rawSet.DeviceID, rawSet.Samples,
	).Scan(&rawSetID)
	if err != nil {
		return nil, fmt.Errorf("insert raw set: %w", err)
	}

	for _, rep := range reps {
		_, err = tx.Exec(ctx,
			`INSERT INTO vbt_reps
				(raw_set_id, player_id, exercise, rep_number, mean_velocity, peak_velocity,
				 eccentric_duration, concentric_duration, rom_meters, time_to_peak_vel,
				 velocity_loss_pct, bar_path_deviation, flagged, flag_reason, samples)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			rawSetID, rawSet.PlayerID, rawSet.Exercise, rep.RepNumber,
			rep.MeanVelocity, rep.PeakVelocity, rep.EccentricDuration,
			rep.ConcentricDuration, rep.RomMeters, rep.TimeToPeakVel,
			rep.VelocityLossPct, rep.BarPathDeviation, rep.Flagged, rep.FlagReason,
			rep.Samples,
		)
		if err != nil {
			return nil, fmt.Errorf("insert rep %d: %w", rep.RepNumber, err)
		}
	}

	rows, err := tx.Query(ctx,
		`INSERT INTO vbt_set_summaries
			(raw_set_id, player_id, exercise, rep_count, avg_velocity, peak_velocity,
			 velocity_loss, estimated_1rm, flagged, flag_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING *`,
		rawSetID, rawSet.PlayerID, rawSet.Exercise, summary.RepCount,
		summary.AvgVelocity, summary.PeakVelocity, summary.VelocityLoss,
		summary.Estimated1RM, summary.Flagged, summary.FlagReason,
	)
	if err != nil {
		return nil, fmt.Errorf("insert set summary: %w", err)
	}

	saved, err := rows2summaries(rows)
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return nil, errors.New("unexpected summary insert result")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ingest tx: %w", err)
	}

	return &saved[0], nil
}

func (r *Repo) ListSummariesForPlayer(ctx context.Context, playerID string, limit int) ([]SetSummary, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.listSummariesForPlayer")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM vbt_set_summaries
		 WHERE player_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list player summaries: %w", err)
	}

	return rows2summaries(rows)
}

func (r *Repo) ListSummariesForTeam(ctx context.Context, teamID string, limit int) ([]SetSummary, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.listSummariesForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT s.* FROM vbt_set_summaries s
		 JOIN vbt_raw_sets rs ON rs.id = s.raw_set_id
		 WHERE rs.team_id = $1
		 ORDER BY s.created_at DESC
		 LIMIT $2`,
		teamID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list team summaries: %w", err)
	}

	return rows2summaries(rows)
}

// ListSummariesForPlayersSince feeds the progress and compliance
// computations; window filtering past the lower bound happens in pure
// code against each assignment's own window.
func (r *Repo) ListSummariesForPlayersSince(ctx context.Context, playerIDs []string, since time.Time) ([]SetSummary, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.listSummariesForPlayersSince")
	defer span.End()

	if len(playerIDs) == 0 {
		return []SetSummary{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT * FROM vbt_set_summaries
		 WHERE player_id = ANY($1) AND created_at >= $2
		 ORDER BY created_at`,
		playerIDs, since,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries since: %w", err)
	}

	return rows2summaries(rows)
}

func (r *Repo) ListRepsForSet(ctx context.Context, rawSetID string) ([]Rep, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.listRepsForSet")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM vbt_reps WHERE raw_set_id = $1 ORDER BY rep_number`,
		rawSetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list set reps: %w", err)
	}

	return rows2reps(rows)
}

func (r *Repo) ListRecentRepsForPlayer(ctx context.Context, playerID string, limit int) ([]Rep, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.listRecentRepsForPlayer")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM vbt_reps
		 WHERE player_id = $1
		 ORDER BY created_at DESC, rep_number DESC
		 LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent reps: %w", err)
	}

	return rows2reps(rows)
}

func (r *Repo) ListFlaggedRepsForPlayer(ctx context.Context, playerID string, limit int) ([]Rep, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.listFlaggedRepsForPlayer")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM vbt_reps
		 WHERE player_id = $1 AND flagged
		 ORDER BY created_at DESC
		 LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list flagged reps: %w", err)
	}

	return rows2reps(rows)
}

// BestRepsPerExercise returns a player's fastest rep (by peak velocity)
// for each exercise, i.e. their velocity PRs.
func (r *Repo) BestRepsPerExercise(ctx context.Context, playerID string) ([]Rep, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vbt.repo.bestRepsPerExercise")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (exercise) * FROM vbt_reps
		 WHERE player_id = $1 AND NOT flagged
		 ORDER BY exercise, peak_velocity DESC`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list best reps: %w", err)
	}

	return rows2reps(rows)
}

func rows2summaries(rows pgx.Rows) ([]SetSummary, error) {
	defer rows.Close()

	summaries := []SetSummary{}
	for rows.Next() {
		var s SetSummary
		if err := rows.Scan(
			&s.ID, &s.RawSetID, &s.PlayerID, &s.Exercise, &s.RepCount,
			&s.AvgVelocity, &s.PeakVelocity, &s.VelocityLoss, &s.Estimated1RM,
			&s.Flagged, &s.FlagReason, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan set summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("set summary rows: %w", err)
	}

	return summaries, nil
}

func rows2reps(rows pgx.Rows) ([]Rep, error) {
	defer rows.Close()

	reps := []Rep{}
	for rows.Next() {
		var rep Rep
		if err := rows.Scan(
			&rep.ID, &rep.RawSetID, &rep.PlayerID, &rep.Exercise, &rep.RepNumber,
			&rep.MeanVelocity, &rep.PeakVelocity, &rep.EccentricDuration,
			&rep.ConcentricDuration, &rep.RomMeters, &rep.TimeToPeakVel,
			&rep.VelocityLossPct, &rep.BarPathDeviation, &rep.Flagged,
			&rep.FlagReason, &rep.Samples, &rep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rep row: %w", err)
		}
		reps = append(reps, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rep rows: %w", err)
	}

	return reps, nil
}
