package brackets

import (
	"fmt"
	"log"
	"sort"

	"github.com/beachcup/tournament-system/models"
)

// Pairing is one entry-round knockout matchup. Slot2.Team may be nil when an
// odd qualifier count leaves one team without an opponent; that match is then
// resolved administratively.
type Pairing struct {
	Slot1 QualificationEntry
	Slot2 QualificationEntry
}

// BuildKnockoutPairings turns the qualification list into the entry-round
// pairing order. Two modes:
//
//  1. Symmetric 4-group crossover (exactly 4 groups, two direct qualifiers
//     per group, no wildcards): A1xD2, B1xC2, C1xB2, D1xA2. Rank-1 and rank-2
//     finishers of the same group land in opposite bracket halves and can only
//     meet again in the final.
//  2. General smart pairing: every rank-1 qualifier is greedily paired with a
//     rank-2 qualifier from a different group (same-group only when no
//     cross-group partner remains), leftovers are paired among themselves.
//     The pairing order is then validated: two pairings feeding the same
//     semifinal must not together contain two teams of one group. On
//     violation, permutations of the pairing order are tried exhaustively
//     (the list is small, at most a handful of pairings) and the first fully
//     valid arrangement wins; if none is valid the original order is kept.
func BuildKnockoutPairings(qualifiers []QualificationEntry, perGroup, wildcards int) ([]Pairing, error) {
	if len(qualifiers) < 2 {
		return nil, ErrNotEnoughQualifiers
	}

	if crossover, ok := crossoverPairings(qualifiers, perGroup, wildcards); ok {
		return crossover, nil
	}
	return smartPairings(qualifiers), nil
}

// crossoverPairings handles the fixed 4-group bracket. It applies only when
// every group contributed exactly its rank-1 and rank-2 finishers.
func crossoverPairings(qualifiers []QualificationEntry, perGroup, wildcards int) ([]Pairing, bool) {
	if perGroup != 2 || wildcards != 0 {
		return nil, false
	}

	rank1 := make(map[string]QualificationEntry)
	rank2 := make(map[string]QualificationEntry)
	for _, q := range qualifiers {
		if q.QualifiedBy != QualifiedByRank {
			return nil, false
		}
		switch q.GroupRank {
		case 1:
			rank1[q.Group] = q
		case 2:
			rank2[q.Group] = q
		default:
			return nil, false
		}
	}
	if len(rank1) != 4 || len(rank2) != 4 {
		return nil, false
	}

	groups := GroupNames(4) // A, B, C, D
	for _, g := range groups {
		if _, ok := rank1[g]; !ok {
			return nil, false
		}
		if _, ok := rank2[g]; !ok {
			return nil, false
		}
	}

	return []Pairing{
		{Slot1: rank1[groups[0]], Slot2: rank2[groups[3]]}, // A1 x D2
		{Slot1: rank1[groups[1]], Slot2: rank2[groups[2]]}, // B1 x C2
		{Slot1: rank1[groups[2]], Slot2: rank2[groups[1]]}, // C1 x B2
		{Slot1: rank1[groups[3]], Slot2: rank2[groups[0]]}, // D1 x A2
	}, true
}

func smartPairings(qualifiers []QualificationEntry) []Pairing {
	var rank1, rank2, rest []QualificationEntry
	for _, q := range qualifiers {
		switch {
		case q.QualifiedBy == QualifiedByRank && q.GroupRank == 1:
			rank1 = append(rank1, q)
		case q.QualifiedBy == QualifiedByRank && q.GroupRank == 2:
			rank2 = append(rank2, q)
		default:
			rest = append(rest, q)
		}
	}

	pairings := make([]Pairing, 0, (len(qualifiers)+1)/2)

	// Greedy: each group winner against a runner-up of a different group.
	for _, first := range rank1 {
		partner := -1
		for i, second := range rank2 {
			if second.Group != first.Group {
				partner = i
				break
			}
		}
		if partner == -1 && len(rank2) > 0 {
			partner = 0 // same-group fallback
		}
		if partner == -1 {
			rest = append(rest, first)
			continue
		}
		pairings = append(pairings, Pairing{Slot1: first, Slot2: rank2[partner]})
		rank2 = append(rank2[:partner], rank2[partner+1:]...)
	}
	rest = append(rest, rank2...)

	// Leftovers (wildcards, excess runners-up) pair among themselves.
	for i := 0; i+1 < len(rest); i += 2 {
		pairings = append(pairings, Pairing{Slot1: rest[i], Slot2: rest[i+1]})
	}
	if len(rest)%2 != 0 {
		odd := rest[len(rest)-1]
		log.Printf("knockout pairing: odd qualifier count, team %d enters without an opponent", odd.Team.ID)
		pairings = append(pairings, Pairing{Slot1: odd})
	}

	if validPairingOrder(pairings) {
		return pairings
	}

	// Permutation search over the pairing order. Exponential, but the pairing
	// list is bounded by the bracket size (<= 4 pairings for an 8-team field).
	if fixed, ok := permuteToValidOrder(pairings); ok {
		return fixed
	}
	log.Printf("knockout pairing: no fully valid arrangement found for %d pairings, keeping greedy order", len(pairings))
	return pairings
}

// validPairingOrder checks the same-group-until-final invariant: pairings at
// positions (0,1) feed semifinal slot 0, (2,3) feed slot 1, and no such
// sibling pair may together contain two teams from the same group.
func validPairingOrder(pairings []Pairing) bool {
	for i := 0; i+1 < len(pairings); i += 2 {
		if pairingsCollide(pairings[i], pairings[i+1]) {
			return false
		}
	}
	return true
}

func pairingsCollide(a, b Pairing) bool {
	return groupsOverlap(pairingGroups(a), pairingGroups(b))
}

func groupsOverlap(a, b []string) bool {
	for _, ga := range a {
		for _, gb := range b {
			if ga == gb {
				return true
			}
		}
	}
	return false
}

func pairingGroups(p Pairing) []string {
	groups := make([]string, 0, 2)
	if p.Slot1.Team != nil && p.Slot1.Group != "" {
		groups = append(groups, p.Slot1.Group)
	}
	if p.Slot2.Team != nil && p.Slot2.Group != "" {
		groups = append(groups, p.Slot2.Group)
	}
	return groups
}

func permuteToValidOrder(pairings []Pairing) ([]Pairing, bool) {
	if len(pairings) > 6 {
		// 6! orderings is the ceiling we are willing to try.
		return nil, false
	}

	perm := make([]Pairing, len(pairings))
	copy(perm, pairings)

	var search func(k int) bool
	search = func(k int) bool {
		if k == len(perm) {
			return validPairingOrder(perm)
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			if search(k + 1) {
				return true
			}
			perm[k], perm[i] = perm[i], perm[k]
		}
		return false
	}

	if search(0) {
		return perm, true
	}
	return nil, false
}

// SemifinalSlot addresses one team slot of a semifinal: Semifinal is the
// semifinal's index in match-number order, Second selects its second slot.
type SemifinalSlot struct {
	Semifinal int
	Second    bool
}

// Slot orders shared by the bracket builder and bracket progression. Byes
// take the first slot of each semifinal before doubling up, so a bye team
// faces a quarterfinal winner whenever one exists.
var (
	semifinalSlotScan = []SemifinalSlot{{0, false}, {0, true}, {1, false}, {1, true}}
	semifinalByeOrder = []SemifinalSlot{{0, false}, {1, false}, {0, true}, {1, true}}
)

// SemifinalByeSlots returns the semifinal slots that are pre-seeded with bye
// teams when the field is short of four quarterfinals.
func SemifinalByeSlots(quarterfinals int) []SemifinalSlot {
	if quarterfinals >= 4 {
		return nil
	}
	return semifinalByeOrder[:4-quarterfinals]
}

// SemifinalFeederSlots maps each quarterfinal (in match-number order) to the
// semifinal slot its winner advances into. Slots not listed here are bye
// slots, filled at bracket build time.
func SemifinalFeederSlots(quarterfinals int) []SemifinalSlot {
	taken := make(map[SemifinalSlot]bool, 4)
	for _, s := range SemifinalByeSlots(quarterfinals) {
		taken[s] = true
	}
	slots := make([]SemifinalSlot, 0, 4)
	for _, s := range semifinalSlotScan {
		if !taken[s] {
			slots = append(slots, s)
		}
	}
	return slots
}

// splitByes peels the strongest qualifiers off the field: best group rank
// first, ties broken by the same comparison chain as the wildcard pool. Bye
// teams skip the quarterfinals and are seeded straight into a semifinal slot.
func splitByes(qualifiers []QualificationEntry, byeCount int) (byes, entrants []QualificationEntry) {
	ordered := make([]QualificationEntry, len(qualifiers))
	copy(ordered, qualifiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.GroupRank != b.GroupRank {
			return a.GroupRank < b.GroupRank
		}
		return strongerRecord(a.Team, b.Team)
	})
	return ordered[:byeCount], ordered[byeCount:]
}

// semifinalEntryValid extends the same-group-until-final check to entry
// rounds with byes: within one semifinal, no group may appear in two
// different feeders (a bye team and a quarterfinal, or two quarterfinals).
func semifinalEntryValid(byes []QualificationEntry, pairings []Pairing) bool {
	var feeders [2][][]string
	for i, slot := range SemifinalByeSlots(len(pairings)) {
		if i >= len(byes) {
			break
		}
		if byes[i].Group != "" {
			feeders[slot.Semifinal] = append(feeders[slot.Semifinal], []string{byes[i].Group})
		}
	}
	slots := SemifinalFeederSlots(len(pairings))
	for i, p := range pairings {
		if i >= len(slots) {
			break
		}
		feeders[slots[i].Semifinal] = append(feeders[slots[i].Semifinal], pairingGroups(p))
	}

	for _, groupSets := range feeders {
		for i := 0; i < len(groupSets); i++ {
			for j := i + 1; j < len(groupSets); j++ {
				if groupsOverlap(groupSets[i], groupSets[j]) {
					return false
				}
			}
		}
	}
	return true
}

// arrangeQuarterfinalEntry permutes the pairing order, then the bye order,
// until the entry round satisfies the same-group-until-final invariant. Both
// lists are tiny (at most 4 pairings, at most 3 byes). Falls back to the
// greedy arrangement when no permutation is fully valid.
func arrangeQuarterfinalEntry(byes []QualificationEntry, pairings []Pairing) ([]QualificationEntry, []Pairing) {
	bp := make([]QualificationEntry, len(byes))
	pp := make([]Pairing, len(pairings))
	copy(bp, byes)
	copy(pp, pairings)

	var searchPairings func(k int) bool
	searchPairings = func(k int) bool {
		if k == len(pp) {
			return semifinalEntryValid(bp, pp)
		}
		for i := k; i < len(pp); i++ {
			pp[k], pp[i] = pp[i], pp[k]
			if searchPairings(k + 1) {
				return true
			}
			pp[k], pp[i] = pp[i], pp[k]
		}
		return false
	}
	var searchByes func(k int) bool
	searchByes = func(k int) bool {
		if k >= len(bp) {
			return searchPairings(0)
		}
		for i := k; i < len(bp); i++ {
			bp[k], bp[i] = bp[i], bp[k]
			if searchByes(k + 1) {
				return true
			}
			bp[k], bp[i] = bp[i], bp[k]
		}
		return false
	}

	if searchByes(0) {
		return bp, pp
	}
	log.Printf("knockout pairing: no fully valid entry arrangement for %d byes and %d pairings, keeping seed order", len(byes), len(pairings))
	return byes, pairings
}

// KnockoutParams describes one bracket generation pass.
type KnockoutParams struct {
	CategoryID       int
	TotalCourts      int
	StartMatchNumber int // continues after the highest group-stage match number
}

// BuildKnockoutMatches constructs the initial knockout match set: the entry
// round from the pairings (quarterfinals when more than 4 teams qualified,
// semifinals otherwise), semifinal placeholders under a quarterfinal entry,
// and the always-present final and third-place matches with null team slots
// to be filled by progression. A quarterfinal field short of 8 teams hands
// its strongest seeds a bye: they are seeded directly into a semifinal slot
// and only the remaining teams play quarterfinals, so every quarterfinal
// winner has a semifinal slot to advance into.
func BuildKnockoutMatches(qualifiers []QualificationEntry, perGroup, wildcards int, params KnockoutParams) ([]*models.Match, error) {
	if len(qualifiers) > 8 {
		return nil, fmt.Errorf("%w: %d qualified", ErrTooManyQualifiers, len(qualifiers))
	}

	entryStage := models.StageSemifinal
	if len(qualifiers) > 4 {
		entryStage = models.StageQuarterfinal
	}

	var byes []QualificationEntry
	entrants := qualifiers
	if entryStage == models.StageQuarterfinal && len(qualifiers) < 8 {
		byes, entrants = splitByes(qualifiers, 8-len(qualifiers))
	}

	pairings, err := BuildKnockoutPairings(entrants, perGroup, wildcards)
	if err != nil {
		return nil, err
	}
	if entryStage == models.StageQuarterfinal {
		byes, pairings = arrangeQuarterfinalEntry(byes, pairings)
	}

	courts := params.TotalCourts
	if courts < 1 {
		courts = 1
	}
	number := params.StartMatchNumber

	newMatch := func(stage models.MatchStage, team1, team2 *models.Team) *models.Match {
		number++
		m := &models.Match{
			CategoryID:  params.CategoryID,
			Stage:       stage,
			Status:      models.MatchStatusScheduled,
			MatchNumber: number,
			CourtNumber: ((number - 1) % courts) + 1,
			Sets:        []models.SetScore{},
		}
		if team1 != nil {
			id := team1.ID
			m.Team1ID = &id
		}
		if team2 != nil {
			id := team2.ID
			m.Team2ID = &id
		}
		return m
	}

	matches := make([]*models.Match, 0, len(pairings)+4)
	for _, p := range pairings {
		matches = append(matches, newMatch(entryStage, p.Slot1.Team, p.Slot2.Team))
	}
	if entryStage == models.StageQuarterfinal {
		semifinals := [2]*models.Match{
			newMatch(models.StageSemifinal, nil, nil),
			newMatch(models.StageSemifinal, nil, nil),
		}
		for i, slot := range SemifinalByeSlots(len(pairings)) {
			if i >= len(byes) {
				break
			}
			id := byes[i].Team.ID
			if slot.Second {
				semifinals[slot.Semifinal].Team2ID = &id
			} else {
				semifinals[slot.Semifinal].Team1ID = &id
			}
		}
		matches = append(matches, semifinals[0], semifinals[1])
	}
	matches = append(matches, newMatch(models.StageFinal, nil, nil))
	matches = append(matches, newMatch(models.StageThirdPlace, nil, nil))

	return matches, nil
}
