package teams

import (
	"encoding/json"
	"time"
)

type Team struct {
	ID              string          `json:"id"`
	CoachID         string          `json:"coach_id"`
	Name            string          `json:"name"`
	Sport           string          `json:"sport"`
	DashboardConfig json.RawMessage `json:"dashboard_config"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TeamIDs projects a coach's teams to their ids, preserving order.
func TeamIDs(teams []Team) []string {
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return ids
}
