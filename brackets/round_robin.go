package brackets

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/beachcup/tournament-system/models"
)

var (
	ErrNotEnoughTeams = errors.New("not enough teams to generate a schedule (minimum 2)")
	ErrTooManyGroups  = errors.New("group count exceeds team count")
)

// GroupNames returns the canonical group labels A, B, C, ... for n groups.
func GroupNames(n int) []string {
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = string(rune('A' + i))
	}
	return names
}

// DrawGroups shuffles the teams and deals them round-robin into numGroups
// equally sized named groups. The rand source is injected so draws stay
// reproducible in tests.
func DrawGroups(teams []*models.Team, numGroups int, rng *rand.Rand) (map[string][]*models.Team, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughTeams, len(teams))
	}
	if numGroups < 1 {
		return nil, fmt.Errorf("invalid group count %d: must be at least 1", numGroups)
	}
	if numGroups > len(teams) {
		return nil, fmt.Errorf("%w: %d groups for %d teams", ErrTooManyGroups, numGroups, len(teams))
	}

	shuffled := make([]*models.Team, len(teams))
	copy(shuffled, teams)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	names := GroupNames(numGroups)
	groups := make(map[string][]*models.Team, numGroups)
	for i, t := range shuffled {
		name := names[i%numGroups]
		groups[name] = append(groups[name], t)
	}
	return groups, nil
}

// ScheduleParams describes one schedule generation pass.
type ScheduleParams struct {
	CategoryID       int
	TotalCourts      int
	StartMatchNumber int // match numbers continue from here (exclusive)
}

type matchup struct {
	team1 *models.Team
	team2 *models.Team
}

// combinedRound is one schedule round merged across all groups. A team plays
// at most once per combined round.
type combinedRound struct {
	matchups []matchup
	groups   []string // parallel to matchups
}

// BuildGroupSchedule produces the full group-stage match list. Per group it
// runs the circle method (every pair meets exactly once), then rounds of equal
// index are merged across groups and the resulting round sequence is greedily
// reordered so that consecutive rounds share as few team appearances as
// possible. Matches are numbered sequentially and courts cycle 1..TotalCourts
// in creation order.
func BuildGroupSchedule(groups map[string][]*models.Team, params ScheduleParams) ([]*models.Match, error) {
	if len(groups) == 0 {
		return nil, ErrNotEnoughTeams
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	// Круги каждой группы считаются независимо, затем сливаются по индексу.
	perGroup := make(map[string][][]matchup, len(groups))
	maxRounds := 0
	for _, name := range names {
		rounds := circleMethodRounds(groups[name])
		perGroup[name] = rounds
		if len(rounds) > maxRounds {
			maxRounds = len(rounds)
		}
	}

	combined := make([]combinedRound, 0, maxRounds)
	for r := 0; r < maxRounds; r++ {
		var round combinedRound
		for _, name := range names {
			rounds := perGroup[name]
			if r >= len(rounds) {
				continue
			}
			for _, mu := range rounds[r] {
				round.matchups = append(round.matchups, mu)
				round.groups = append(round.groups, name)
			}
		}
		combined = append(combined, round)
	}

	ordered := orderRounds(combined)

	courts := params.TotalCourts
	if courts < 1 {
		courts = 1
	}

	matches := make([]*models.Match, 0)
	number := params.StartMatchNumber
	for roundIdx, round := range ordered {
		roundNumber := roundIdx + 1
		for i, mu := range round.matchups {
			number++
			groupName := round.groups[i]
			rn := roundNumber
			t1ID := mu.team1.ID
			t2ID := mu.team2.ID
			matches = append(matches, &models.Match{
				CategoryID:  params.CategoryID,
				Team1ID:     &t1ID,
				Team2ID:     &t2ID,
				Stage:       models.StageGroup,
				Status:      models.MatchStatusScheduled,
				MatchNumber: number,
				RoundNumber: &rn,
				GroupName:   &groupName,
				CourtNumber: ((number - 1) % courts) + 1,
				Sets:        []models.SetScore{},
			})
		}
	}
	return matches, nil
}

// circleMethodRounds implements the standard circle method: one team stays
// fixed while the others rotate one position per round, giving n-1 rounds for
// even n. For odd n a synthetic bye slot is inserted and pairings against it
// are dropped.
func circleMethodRounds(teams []*models.Team) [][]matchup {
	if len(teams) < 2 {
		return nil
	}

	rotation := make([]*models.Team, len(teams))
	copy(rotation, teams)
	if len(rotation)%2 != 0 {
		rotation = append(rotation, nil) // bye
	}

	n := len(rotation)
	rounds := make([][]matchup, 0, n-1)
	for r := 0; r < n-1; r++ {
		var round []matchup
		for i := 0; i < n/2; i++ {
			t1 := rotation[i]
			t2 := rotation[n-1-i]
			if t1 == nil || t2 == nil {
				continue
			}
			round = append(round, matchup{team1: t1, team2: t2})
		}
		rounds = append(rounds, round)

		// rotate everything except rotation[0]
		last := rotation[n-1]
		copy(rotation[2:], rotation[1:n-1])
		rotation[1] = last
	}
	return rounds
}

// orderRounds greedily reorders whole rounds: starting from the first round it
// repeatedly appends the remaining round that shares the fewest team
// appearances with the immediately preceding one. This is a heuristic spread,
// not an optimal solver.
func orderRounds(rounds []combinedRound) []combinedRound {
	if len(rounds) <= 2 {
		return rounds
	}

	remaining := make([]combinedRound, len(rounds)-1)
	copy(remaining, rounds[1:])
	ordered := []combinedRound{rounds[0]}

	for len(remaining) > 0 {
		prev := ordered[len(ordered)-1]
		best := 0
		bestShared := sharedAppearances(prev, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if shared := sharedAppearances(prev, remaining[i]); shared < bestShared {
				best = i
				bestShared = shared
			}
		}
		ordered = append(ordered, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

func sharedAppearances(a, b combinedRound) int {
	inA := make(map[int]bool)
	for _, mu := range a.matchups {
		inA[mu.team1.ID] = true
		inA[mu.team2.ID] = true
	}
	shared := 0
	for _, mu := range b.matchups {
		if inA[mu.team1.ID] {
			shared++
		}
		if inA[mu.team2.ID] {
			shared++
		}
	}
	return shared
}
