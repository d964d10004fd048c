package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTemplateNotFound = errors.New("workout template not found")

type TemplatesRepo struct {
	db *pgxpool.Pool
}

func NewTemplatesRepo(db *pgxpool.Pool) *TemplatesRepo {
	return &TemplatesRepo{db: db}
}

func (r *TemplatesRepo) Add(ctx context.Context, t Template) (*Template, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.templates.add")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`INSERT INTO workout_templates (coach_id, sport, name, description, content)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING *`,
		t.CoachID, t.Sport, t.Name, t.Description, t.Content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}

	added, err := rows2templates(rows)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, errors.New("unexpected insert result")
	}
	return &added[0], nil
}

func (r *TemplatesRepo) Get(ctx context.Context, id string) (*Template, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.templates.get")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT * FROM workout_templates WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}

	found, err := rows2templates(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrTemplateNotFound
	}
	return &found[0], nil
}

func (r *TemplatesRepo) ListForCoach(ctx context.Context, coachID string) ([]Template, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.templates.listForCoach")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM workout_templates WHERE coach_id = $1 ORDER BY created_at DESC`,
		coachID,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	return rows2templates(rows)
}

type TemplateUpdate struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Content     *Content `json:"content"`
}

func (r *TemplatesRepo) Update(ctx context.Context, id, coachID string, u TemplateUpdate) (*Template, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.templates.update")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`UPDATE workout_templates SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			content = COALESCE($5, content)
		 WHERE id = $1 AND coach_id = $2
		 RETURNING *`,
		id, coachID, u.Name, u.Description, u.Content,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}

	updated, err := rows2templates(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrTemplateNotFound
	}
	return &updated[0], nil
}

func (r *TemplatesRepo) Delete(ctx context.Context, id, coachID string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.templates.delete")
	defer span.End()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM workout_templates WHERE id = $1 AND coach_id = $2`,
		id, coachID,
	)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func rows2templates(rows pgx.Rows) ([]Template, error) {
	defer rows.Close()

	templates := []Template{}
	for rows.Next() {
		var t Template
		if err := rows.Scan(
			&t.ID, &t.CoachID, &t.Sport, &t.Name, &t.Description, &t.Content, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template row: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template rows: %w", err)
	}

	return templates, nil
}
