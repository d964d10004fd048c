package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LogsRepo struct {
	db *pgxpool.Pool
}

func NewLogsRepo(db *pgxpool.Pool) *LogsRepo {
	return &LogsRepo{db: db}
}

// Upsert writes one self-report row, replacing a previous report for
// the same (assignment, player, exercise).
func (r *LogsRepo) Upsert(ctx context.Context, logRow ExerciseLog) (*ExerciseLog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.logs.upsert")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`INSERT INTO workout_exercise_logs
			(assignment_id, player_id, exercise_name, weight_lbs, sets_completed, reps_per_set, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (assignment_id, player_id, exercise_name)
		 DO UPDATE SET
			weight_lbs = EXCLUDED.weight_lbs,
			sets_completed = EXCLUDED.sets_completed,
			reps_per_set = EXCLUDED.reps_per_set,
			notes = EXCLUDED.notes,
			logged_at = now()
		 RETURNING *`,
		logRow.AssignmentID, logRow.PlayerID, logRow.ExerciseName,
		logRow.WeightLbs, logRow.SetsCompleted, logRow.RepsPerSet, logRow.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert exercise log: %w", err)
	}

	upserted, err := rows2logs(rows)
	if err != nil {
		return nil, err
	}
	if len(upserted) == 0 {
		return nil, errors.New("unexpected upsert result")
	}
	return &upserted[0], nil
}

func (r *LogsRepo) ListForAssignmentPlayer(ctx context.Context, assignmentID, playerID string) ([]ExerciseLog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.logs.listForAssignmentPlayer")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM workout_exercise_logs
		 WHERE assignment_id = $1 AND player_id = $2`,
		assignmentID, playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list exercise logs: %w", err)
	}

	return rows2logs(rows)
}

func (r *LogsRepo) ListForAssignment(ctx context.Context, assignmentID string) ([]ExerciseLog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.logs.listForAssignment")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM workout_exercise_logs WHERE assignment_id = $1`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignment logs: %w", err)
	}

	return rows2logs(rows)
}

// LogPairs returns which (assignment, player) combinations have any
// self-report row at all; the compliance rollup treats any such pair
// as started.
func (r *LogsRepo) LogPairs(ctx context.Context, assignmentIDs []string) (map[LogPair]struct{}, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.logs.logPairs")
	defer span.End()

	pairs := map[LogPair]struct{}{}
	if len(assignmentIDs) == 0 {
		return pairs, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT assignment_id, player_id FROM workout_exercise_logs
		 WHERE assignment_id = ANY($1)`,
		assignmentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list log pairs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pair LogPair
		if err := rows.Scan(&pair.AssignmentID, &pair.PlayerID); err != nil {
			return nil, fmt.Errorf("scan log pair row: %w", err)
		}
		pairs[pair] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("log pair rows: %w", err)
	}

	return pairs, nil
}

func (r *LogsRepo) ListRecentForPlayers(ctx context.Context, playerIDs []string, limit int) ([]ExerciseLog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.logs.listRecentForPlayers")
	defer span.End()

	if len(playerIDs) == 0 {
		return []ExerciseLog{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT * FROM workout_exercise_logs
		 WHERE player_id = ANY($1)
		 ORDER BY logged_at DESC
		 LIMIT $2`,
		playerIDs, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent logs: %w", err)
	}

	return rows2logs(rows)
}

func rows2logs(rows pgx.Rows) ([]ExerciseLog, error) {
	defer rows.Close()

	logs := []ExerciseLog{}
	for rows.Next() {
		var logRow ExerciseLog
		if err := rows.Scan(
			&logRow.ID, &logRow.AssignmentID, &logRow.PlayerID, &logRow.ExerciseName,
			&logRow.WeightLbs, &logRow.SetsCompleted, &logRow.RepsPerSet,
			&logRow.Notes, &logRow.LoggedAt,
		); err != nil {
			return nil, fmt.Errorf("scan exercise log row: %w", err)
		}
		logs = append(logs, logRow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exercise log rows: %w", err)
	}

	return logs, nil
}
