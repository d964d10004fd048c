package rfid

import "time"

// Tag is a physical RFID chip handed to a player; uid is what the
// reader hardware reports.
type Tag struct {
	ID               string  `json:"id"`
	UID              string  `json:"uid"`
	TeamID           string  `json:"team_id"`
	AssignedPlayerID *string `json:"assigned_player_id"`
}

type ScanEvent struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	UID       string    `json:"uid"`
	DeviceID  *string   `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RosterEntry is the slim player view a rack-mounted reader pulls down
// to resolve tag scans offline.
type RosterEntry struct {
	PlayerID      string  `json:"player_id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	PositionGroup string  `json:"position_group"`
	TagUID        *string `json:"tag_uid"`
}
