package workouts

import "github.com/cmpeavlerjr72/vbt-api/internal/players"

// EligiblePlayers resolves which of the given roster an assignment
// targets.
//
//   - team: the whole roster
//   - position_group: roster spots whose group matches exactly
//   - players: exactly the explicit membership rows, roster or not
//
// Assignments with a target type this code predates are treated as
// team-wide so nobody silently drops off the board.
func EligiblePlayers(
	assignment Assignment,
	roster []players.Player,
	membership map[string]PlayerIDSet,
) PlayerIDSet {
	eligible := PlayerIDSet{}

	switch assignment.TargetType {
	case TargetPositionGroup:
		if assignment.TargetPositionGroup == nil {
			return eligible
		}
		for _, p := range roster {
			if p.PositionGroup == *assignment.TargetPositionGroup {
				eligible[p.ID] = struct{}{}
			}
		}
	case TargetPlayers:
		for playerID := range membership[assignment.ID] {
			eligible[playerID] = struct{}{}
		}
	default:
		for _, p := range roster {
			eligible[p.ID] = struct{}{}
		}
	}

	return eligible
}
