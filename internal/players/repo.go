package players

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrInviteCodeNotFound = errors.New("invite code not found")
	ErrInviteCodeClaimed  = errors.New("invite code already claimed")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, p Player) (*Player, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.add")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`INSERT INTO players
			(team_id, first_name, last_name, jersey_number, position_group, invite_code)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING *`,
		p.TeamID, p.FirstName, p.LastName, p.JerseyNumber, p.PositionGroup, p.InviteCode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}

	added, err := rows2players(rows)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, errors.New("unexpected insert result")
	}
	return &added[0], nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Player, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.get")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT * FROM players WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}

	found, err := rows2players(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrPlayerNotFound
	}
	return &found[0], nil
}

func (r *Repo) GetByUserID(ctx context.Context, userID string) (*Player, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.getByUserID")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT * FROM players WHERE linked_user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get player by user: %w", err)
	}

	found, err := rows2players(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrPlayerNotFound
	}
	return &found[0], nil
}

func (r *Repo) ListForTeam(ctx context.Context, teamID string) ([]Player, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.listForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM players WHERE team_id = $1 ORDER BY last_name, first_name`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	return rows2players(rows)
}

func (r *Repo) ListForTeams(ctx context.Context, teamIDs []string) ([]Player, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.listForTeams")
	defer span.End()

	if len(teamIDs) == 0 {
		return []Player{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT * FROM players WHERE team_id = ANY($1) ORDER BY last_name, first_name`,
		teamIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list players for teams: %w", err)
	}

	return rows2players(rows)
}

type Update struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	JerseyNumber  *int    `json:"jersey_number"`
	PositionGroup *string `json:"position_group"`
	RfidTagID     *string `json:"rfid_tag_id"`
}

func (r *Repo) Update(ctx context.Context, id string, u Update) (*Player, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.update")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`UPDATE players SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			jersey_number = COALESCE($4, jersey_number),
			position_group = COALESCE($5, position_group),
			rfid_tag_id = COALESCE($6, rfid_tag_id)
		 WHERE id = $1
		 RETURNING *`,
		id, u.FirstName, u.LastName, u.JerseyNumber, u.PositionGroup, u.RfidTagID,
	)
	if err != nil {
		return nil, fmt.Errorf("update player: %w", err)
	}

	updated, err := rows2players(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrPlayerNotFound
	}
	return &updated[0], nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.delete")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// ClaimInvite links an auth user to the roster spot carrying the invite
// code. A spot already linked to another user cannot be claimed again.
func (r *Repo) ClaimInvite(ctx context.Context, inviteCode, userID string) (*Player, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "players.repo.claimInvite")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM players WHERE invite_code = $1`,
		inviteCode,
	)
	if err != nil {
		return nil, fmt.Errorf("find invite code: %w", err)
	}

	found, err := rows2players(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrInviteCodeNotFound
	}
	p := found[0]
	if p.LinkedUserID != nil && *p.LinkedUserID != userID {
		return nil, ErrInviteCodeClaimed
	}

	rows, err = r.db.Query(ctx,
		`UPDATE players SET linked_user_id = $2, linked_at = $3
		 WHERE id = $1
		 RETURNING *`,
		p.ID, userID, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("claim invite: %w", err)
	}

	claimed, err := rows2players(rows)
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, ErrPlayerNotFound
	}
	return &claimed[0], nil
}

func rows2players(rows pgx.Rows) ([]Player, error) {
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		var p Player
		if err := rows.Scan(
			&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &p.JerseyNumber,
			&p.PositionGroup, &p.RfidTagID, &p.InviteCode, &p.LinkedUserID,
			&p.LinkedAt, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("player rows: %w", err)
	}

	return players, nil
}
