package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAssignmentNotFound = errors.New("workout assignment not found")

type AssignmentsRepo struct {
	db *pgxpool.Pool
}

func NewAssignmentsRepo(db *pgxpool.Pool) *AssignmentsRepo {
	return &AssignmentsRepo{db: db}
}

// Add creates the assignment and, for explicit player targeting, its
// junction rows in one transaction.
func (r *AssignmentsRepo) Add(ctx context.Context, a Assignment, playerIDs []string) (*Assignment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.add")
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin assignment tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx,
		`INSERT INTO workout_assignments
			(team_id, template_id, target_type, target_position_group,
			 start_at, due_at, status, notes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING *`,
		a.TeamID, a.TemplateID, a.TargetType, a.TargetPositionGroup,
		a.StartAt, a.DueAt, a.Status, a.Notes, a.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}

	added, err := rows2assignments(rows)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, errors.New("unexpected insert result")
	}

	if added[0].TargetType == TargetPlayers {
		for _, playerID := range playerIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO workout_assignment_players (assignment_id, player_id)
				 VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`,
				added[0].ID, playerID,
			); err != nil {
				return nil, fmt.Errorf("insert assignment player: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit assignment tx: %w", err)
	}

	return &added[0], nil
}

func (r *AssignmentsRepo) Get(ctx context.Context, id string) (*Assignment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.get")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT * FROM workout_assignments WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	found, err := rows2assignments(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrAssignmentNotFound
	}
	return &found[0], nil
}

func (r *AssignmentsRepo) ListForTeam(ctx context.Context, teamID string) ([]Assignment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.listForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM workout_assignments WHERE team_id = $1 ORDER BY created_at DESC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	return rows2assignments(rows)
}

func (r *AssignmentsRepo) ListActiveForTeam(ctx context.Context, teamID string) ([]Assignment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.listActiveForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM workout_assignments
		 WHERE team_id = $1 AND status = $2
		 ORDER BY created_at DESC`,
		teamID, AssignmentStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}

	return rows2assignments(rows)
}

// ListDueBetween returns assignments across teams whose due date falls
// inside the closed range; the compliance rollup reads this.
func (r *AssignmentsRepo) ListDueBetween(ctx context.Context, teamIDs []string, since, until time.Time) ([]Assignment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.listDueBetween")
	defer span.End()

	if len(teamIDs) == 0 {
		return []Assignment{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT * FROM workout_assignments
		 WHERE team_id = ANY($1) AND due_at >= $2 AND due_at <= $3
		 ORDER BY due_at`,
		teamIDs, since, until,
	)
	if err != nil {
		return nil, fmt.Errorf("list due assignments: %w", err)
	}

	return rows2assignments(rows)
}

// Membership loads the explicit player targeting rows for a batch of
// assignments.
func (r *AssignmentsRepo) Membership(ctx context.Context, assignmentIDs []string) (map[string]PlayerIDSet, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.membership")
	defer span.End()

	membership := map[string]PlayerIDSet{}
	if len(assignmentIDs) == 0 {
		return membership, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT assignment_id, player_id FROM workout_assignment_players
		 WHERE assignment_id = ANY($1)`,
		assignmentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignment players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assignmentID, playerID string
		if err := rows.Scan(&assignmentID, &playerID); err != nil {
			return nil, fmt.Errorf("scan assignment player row: %w", err)
		}
		if membership[assignmentID] == nil {
			membership[assignmentID] = PlayerIDSet{}
		}
		membership[assignmentID][playerID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assignment player rows: %w", err)
	}

	return membership, nil
}

func (r *AssignmentsRepo) UpdateStatus(ctx context.Context, id, status string) (*Assignment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.updateStatus")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`UPDATE workout_assignments SET status = $2 WHERE id = $1 RETURNING *`,
		id, status,
	)
	if err != nil {
		return nil, fmt.Errorf("update assignment status: %w", err)
	}

	updated, err := rows2assignments(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrAssignmentNotFound
	}
	return &updated[0], nil
}

// Delete removes an assignment together with its junction and log rows.
func (r *AssignmentsRepo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.assignments.delete")
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		`DELETE FROM workout_assignment_players WHERE assignment_id = $1`, id,
	); err != nil {
		return fmt.Errorf("delete assignment players: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM workout_exercise_logs WHERE assignment_id = $1`, id,
	); err != nil {
		return fmt.Errorf("delete assignment logs: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM workout_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}

	return nil
}

func rows2assignments(rows pgx.Rows) ([]Assignment, error) {
	defer rows.Close()

	assignments := []Assignment{}
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(
			&a.ID, &a.TeamID, &a.TemplateID, &a.TargetType, &a.TargetPositionGroup,
			&a.StartAt, &a.DueAt, &a.Status, &a.Notes, &a.CreatedBy, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assignment rows: %w", err)
	}

	return assignments, nil
}
