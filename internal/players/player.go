package players

import "time"

// PositionGroup values are a small closed enumeration on the roster;
// unknown values coming from older rows are passed through literally.
const (
	PositionGroupSkill = "skill"
	PositionGroupCombo = "combo"
	PositionGroupPower = "power"
)

type Player struct {
	ID            string     `json:"id"`
	TeamID        string     `json:"team_id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	JerseyNumber  *int       `json:"jersey_number"`
	PositionGroup string     `json:"position_group"`
	RfidTagID     *string    `json:"rfid_tag_id"`
	InviteCode    *string    `json:"invite_code"`
	LinkedUserID  *string    `json:"linked_user_id"`
	LinkedAt      *time.Time `json:"linked_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (p Player) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// PlayersByTeam groups a roster into {team id: players}.
func PlayersByTeam(roster []Player) map[string][]Player {
	byTeam := make(map[string][]Player)
	for _, p := range roster {
		byTeam[p.TeamID] = append(byTeam[p.TeamID], p)
	}
	return byTeam
}
