package dashboard

import (
	"math"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/players"
	"github.com/cmpeavlerjr72/vbt-api/internal/teams"
	"github.com/cmpeavlerjr72/vbt-api/internal/vbt"
	"github.com/cmpeavlerjr72/vbt-api/internal/workouts"
)

// ComplianceInput carries everything the rollup needs, pre-fetched, so
// the computation itself touches no storage.
type ComplianceInput struct {
	Teams       []teams.Team
	Roster      []players.Player
	Assignments []workouts.Assignment
	Membership  map[string]workouts.PlayerIDSet
	LogPairs    map[workouts.LogPair]struct{}
	Summaries   []vbt.SetSummary
	Since       time.Time
	Until       time.Time
}

type TeamCompliance struct {
	TeamID         string `json:"team_id"`
	TeamName       string `json:"team_name"`
	AssignmentsDue int    `json:"assignments_due"`
	EligibleSlots  int    `json:"eligible_slots"`
	StartedSlots   int    `json:"started_slots"`
	CompliancePct  int    `json:"compliance_pct"`
}

type ComplianceReport struct {
	PerTeam    []TeamCompliance `json:"per_team"`
	OverallPct int              `json:"overall_pct"`
	Since      time.Time        `json:"since"`
	Until      time.Time        `json:"until"`
}

// ComputeCompliance rolls assignments due in [since, until] up into
// per-team and overall percentages of eligible players who started.
// An eligible player counts as started once per assignment: either a
// self-report row bound to it exists, or any sensor set landed inside
// the assignment's effective window. Teams with nothing due (or no
// eligible players) report 0.
func ComputeCompliance(in ComplianceInput) ComplianceReport {
	rosterByTeam := players.PlayersByTeam(in.Roster)

	type teamTally struct {
		due      int
		eligible int
		started  int
	}
	tallies := make(map[string]*teamTally, len(in.Teams))
	for _, t := range in.Teams {
		tallies[t.ID] = &teamTally{}
	}

	fallback := workouts.Window{Start: in.Since, End: in.Until}

	for _, a := range in.Assignments {
		tally, ok := tallies[a.TeamID]
		if !ok {
			continue
		}
		tally.due++

		eligible := workouts.EligiblePlayers(a, rosterByTeam[a.TeamID], in.Membership)
		window := a.EffectiveWindow(fallback)

		for playerID := range eligible {
			tally.eligible++
			if workouts.Started(a.ID, playerID, window, in.LogPairs, playerSummaries(in.Summaries, playerID)) {
				tally.started++
			}
		}
	}

	report := ComplianceReport{
		PerTeam: make([]TeamCompliance, 0, len(in.Teams)),
		Since:   in.Since,
		Until:   in.Until,
	}

	var totalEligible, totalStarted int
	for _, t := range in.Teams {
		tally := tallies[t.ID]
		report.PerTeam = append(report.PerTeam, TeamCompliance{
			TeamID:         t.ID,
			TeamName:       t.Name,
			AssignmentsDue: tally.due,
			EligibleSlots:  tally.eligible,
			StartedSlots:   tally.started,
			CompliancePct:  roundPct(tally.started, tally.eligible),
		})
		totalEligible += tally.eligible
		totalStarted += tally.started
	}
	report.OverallPct = roundPct(totalStarted, totalEligible)

	return report
}

func playerSummaries(summaries []vbt.SetSummary, playerID string) []vbt.SetSummary {
	matched := []vbt.SetSummary{}
	for _, s := range summaries {
		if s.PlayerID == playerID {
			matched = append(matched, s)
		}
	}
	return matched
}

// roundPct rounds half away from zero on the final percentage only.
func roundPct(started, eligible int) int {
	if eligible == 0 {
		return 0
	}
	return int(math.Round(float64(started) / float64(eligible) * 100))
}
