package brackets

import (
	"sort"

	"github.com/beachcup/tournament-system/models"
)

// ComputeStandings recomputes cumulative group-stage statistics for every team
// from the given finished group matches and returns the ranked order per group.
// Team stats are wiped and rebuilt from scratch on every call, so repeated
// computation over the same match set always produces identical results.
//
// Ranking within a group, descending:
//  1. match wins
//  2. head-to-head result, but only when exactly two teams are tied on wins
//  3. point differential (scored - conceded)
func ComputeStandings(teams []*models.Team, finishedMatches []*models.Match) map[string][]*models.Team {
	byID := make(map[int]*models.Team, len(teams))
	for _, t := range teams {
		t.ResetStats()
		byID[t.ID] = t
	}

	groupMatches := make([]*models.Match, 0, len(finishedMatches))
	for _, m := range finishedMatches {
		if m.Stage != models.StageGroup || m.Status != models.MatchStatusFinished {
			continue
		}
		// Матч без одной из команд — это bye/заготовка, в агрегации не участвует.
		if m.Team1ID == nil || m.Team2ID == nil {
			continue
		}
		accrueMatch(byID, m)
		groupMatches = append(groupMatches, m)
	}

	standings := make(map[string][]*models.Team)
	for _, t := range teams {
		if t.GroupName == nil {
			continue
		}
		standings[*t.GroupName] = append(standings[*t.GroupName], t)
	}
	for _, groupTeams := range standings {
		sortGroup(groupTeams, groupMatches)
	}
	return standings
}

func accrueMatch(byID map[int]*models.Team, m *models.Match) {
	t1, ok1 := byID[*m.Team1ID]
	t2, ok2 := byID[*m.Team2ID]
	if !ok1 || !ok2 {
		return
	}

	for _, set := range m.Sets {
		// Партия 0:0 считается несыгранной.
		if set.Team1 == 0 && set.Team2 == 0 {
			continue
		}
		t1.PointsScored += set.Team1
		t1.PointsConceded += set.Team2
		t2.PointsScored += set.Team2
		t2.PointsConceded += set.Team1
		if set.Team1 > set.Team2 {
			t1.SetsWon++
			t2.SetsLost++
		} else if set.Team2 > set.Team1 {
			t2.SetsWon++
			t1.SetsLost++
		}
	}

	// Победа засчитывается только по официальному winner_id.
	if m.WinnerID != nil {
		if *m.WinnerID == t1.ID {
			t1.Wins++
			t2.Losses++
		} else if *m.WinnerID == t2.ID {
			t2.Wins++
			t1.Losses++
		}
	}
}

func sortGroup(teams []*models.Team, groupMatches []*models.Match) {
	winsCount := make(map[int]int, len(teams))
	for _, t := range teams {
		winsCount[t.Wins]++
	}

	sort.SliceStable(teams, func(i, j int) bool {
		a, b := teams[i], teams[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if winsCount[a.Wins] == 2 {
			if winner := headToHeadWinner(a.ID, b.ID, groupMatches); winner != 0 {
				return winner == a.ID
			}
		}
		return a.PointDifference() > b.PointDifference()
	})
}

// headToHeadWinner returns the winner of the direct group match between the two
// teams, or 0 when they have not met (or the meeting had no recorded winner).
func headToHeadWinner(teamA, teamB int, groupMatches []*models.Match) int {
	for _, m := range groupMatches {
		if m.HasTeam(teamA) && m.HasTeam(teamB) && m.WinnerID != nil {
			return *m.WinnerID
		}
	}
	return 0
}

// SortWildcardPool orders the non-direct-qualified teams pooled across all
// groups: wins, then set differential, then point differential, then raw
// points scored. Final fallback is ascending team id (registration order),
// which keeps the selection deterministic.
func SortWildcardPool(pool []*models.Team) {
	sort.SliceStable(pool, func(i, j int) bool {
		return strongerRecord(pool[i], pool[j])
	})
}

// strongerRecord compares two group-stage records across group boundaries:
// wins, set differential, point differential, raw points scored, then
// ascending team id (registration order) as the deterministic fallback.
func strongerRecord(a, b *models.Team) bool {
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	if a.SetDifference() != b.SetDifference() {
		return a.SetDifference() > b.SetDifference()
	}
	if a.PointDifference() != b.PointDifference() {
		return a.PointDifference() > b.PointDifference()
	}
	if a.PointsScored != b.PointsScored {
		return a.PointsScored > b.PointsScored
	}
	return a.ID < b.ID
}
