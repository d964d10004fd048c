package rfid

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTagNotFound = errors.New("rfid tag not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) AddTag(ctx context.Context, t Tag) (*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rfid.repo.addTag")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`INSERT INTO rfid_tags (uid, team_id, assigned_player_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (uid) DO UPDATE SET team_id = EXCLUDED.team_id
		 RETURNING *`,
		t.UID, t.TeamID, t.AssignedPlayerID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rfid tag: %w", err)
	}

	added, err := rows2tags(rows)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, errors.New("unexpected insert result")
	}
	return &added[0], nil
}

func (r *Repo) GetTagByUID(ctx context.Context, uid string) (*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rfid.repo.getTagByUID")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT * FROM rfid_tags WHERE uid = $1`, uid)
	if err != nil {
		return nil, fmt.Errorf("get rfid tag: %w", err)
	}

	found, err := rows2tags(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrTagNotFound
	}
	return &found[0], nil
}

func (r *Repo) ListTagsForTeam(ctx context.Context, teamID string) ([]Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rfid.repo.listTagsForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM rfid_tags WHERE team_id = $1 ORDER BY uid`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rfid tags: %w", err)
	}

	return rows2tags(rows)
}

// AssignTag binds a tag to a player, updating both sides of the link.
func (r *Repo) AssignTag(ctx context.Context, tagID, playerID string) (*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rfid.repo.assignTag")
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin assign tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx,
		`UPDATE rfid_tags SET assigned_player_id = $2 WHERE id = $1 RETURNING *`,
		tagID, playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("assign rfid tag: %w", err)
	}

	updated, err := rows2tags(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrTagNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE players SET rfid_tag_id = $2 WHERE id = $1`,
		playerID, tagID,
	); err != nil {
		return nil, fmt.Errorf("link player to tag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit assign tx: %w", err)
	}

	return &updated[0], nil
}

func (r *Repo) AddScanEvent(ctx context.Context, e ScanEvent) (*ScanEvent, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rfid.repo.addScanEvent")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`INSERT INTO scan_events (team_id, uid, device_id)
		 VALUES ($1, $2, $3)
		 RETURNING *`,
		e.TeamID, e.UID, e.DeviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan event: %w", err)
	}

	added, err := rows2scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, errors.New("unexpected insert result")
	}
	return &added[0], nil
}

func (r *Repo) ListScanEventsForTeam(ctx context.Context, teamID string, limit int) ([]ScanEvent, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rfid.repo.listScanEventsForTeam")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT * FROM scan_events
		 WHERE team_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		teamID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list scan events: %w", err)
	}

	return rows2scanEvents(rows)
}

// DeviceRoster joins players with their tag uids for one team.
func (r *Repo) DeviceRoster(ctx context.Context, teamID string) ([]RosterEntry, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rfid.repo.deviceRoster")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.first_name, p.last_name, p.position_group, t.uid
		 FROM players p
		 LEFT JOIN rfid_tags t ON t.id = p.rfid_tag_id
		 WHERE p.team_id = $1
		 ORDER BY p.last_name, p.first_name`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("device roster: %w", err)
	}
	defer rows.Close()

	roster := []RosterEntry{}
	for rows.Next() {
		var entry RosterEntry
		if err := rows.Scan(
			&entry.PlayerID, &entry.FirstName, &entry.LastName,
			&entry.PositionGroup, &entry.TagUID,
		); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		roster = append(roster, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster rows: %w", err)
	}

	return roster, nil
}

func rows2tags(rows pgx.Rows) ([]Tag, error) {
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.UID, &t.TeamID, &t.AssignedPlayerID); err != nil {
			return nil, fmt.Errorf("scan rfid tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rfid tag rows: %w", err)
	}

	return tags, nil
}

func rows2scanEvents(rows pgx.Rows) ([]ScanEvent, error) {
	defer rows.Close()

	events := []ScanEvent{}
	for rows.Next() {
		var e ScanEvent
		if err := rows.Scan(&e.ID, &e.TeamID, &e.UID, &e.DeviceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan event rows: %w", err)
	}

	return events, nil
}
