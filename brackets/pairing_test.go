package brackets

import (
	"testing"

	"github.com/beachcup/tournament-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int, group string, rank int) QualificationEntry {
	return QualificationEntry{
		Team:        &models.Team{ID: id},
		Group:       group,
		GroupRank:   rank,
		QualifiedBy: QualifiedByRank,
	}
}

func fourGroupQualifiers() []QualificationEntry {
	return []QualificationEntry{
		entry(1, "A", 1), entry(2, "A", 2),
		entry(3, "B", 1), entry(4, "B", 2),
		entry(5, "C", 1), entry(6, "C", 2),
		entry(7, "D", 1), entry(8, "D", 2),
	}
}

func TestBuildKnockoutPairings_FourGroupCrossover(t *testing.T) {
	pairings, err := BuildKnockoutPairings(fourGroupQualifiers(), 2, 0)
	require.NoError(t, err)
	require.Len(t, pairings, 4)

	// A1xD2, B1xC2, C1xB2, D1xA2
	assert.Equal(t, 1, pairings[0].Slot1.Team.ID)
	assert.Equal(t, 8, pairings[0].Slot2.Team.ID)
	assert.Equal(t, 3, pairings[1].Slot1.Team.ID)
	assert.Equal(t, 6, pairings[1].Slot2.Team.ID)
	assert.Equal(t, 5, pairings[2].Slot1.Team.ID)
	assert.Equal(t, 4, pairings[2].Slot2.Team.ID)
	assert.Equal(t, 7, pairings[3].Slot1.Team.ID)
	assert.Equal(t, 2, pairings[3].Slot2.Team.ID)
}

func TestBuildKnockoutPairings_CrossoverKeepsGroupmatesApartUntilFinal(t *testing.T) {
	pairings, err := BuildKnockoutPairings(fourGroupQualifiers(), 2, 0)
	require.NoError(t, err)

	// Semifinal 1 draws from pairings 0-1, semifinal 2 from pairings 2-3.
	// Groupmates must sit in opposite halves.
	half1 := append(pairingGroups(pairings[0]), pairingGroups(pairings[1])...)
	half2 := append(pairingGroups(pairings[2]), pairingGroups(pairings[3])...)
	assert.ElementsMatch(t, []string{"A", "D", "B", "C"}, half1)
	assert.ElementsMatch(t, []string{"C", "B", "D", "A"}, half2)
	assert.True(t, validPairingOrder(pairings))
}

func TestBuildKnockoutPairings_SmartAvoidsSameGroup(t *testing.T) {
	qualifiers := []QualificationEntry{
		entry(1, "A", 1), entry(2, "A", 2),
		entry(3, "B", 1), entry(4, "B", 2),
	}

	pairings, err := BuildKnockoutPairings(qualifiers, 2, 0)
	require.NoError(t, err)
	require.Len(t, pairings, 2)

	for _, p := range pairings {
		assert.NotEqual(t, p.Slot1.Group, p.Slot2.Group, "groupmates paired in the entry round")
	}
}

func TestBuildKnockoutPairings_SameGroupFallback(t *testing.T) {
	// Single group: a same-group pairing is unavoidable.
	qualifiers := []QualificationEntry{
		entry(1, "A", 1), entry(2, "A", 2),
	}

	pairings, err := BuildKnockoutPairings(qualifiers, 2, 0)
	require.NoError(t, err)
	require.Len(t, pairings, 1)
	assert.Equal(t, 1, pairings[0].Slot1.Team.ID)
	assert.Equal(t, 2, pairings[0].Slot2.Team.ID)
}

func TestBuildKnockoutPairings_OddQualifierGetsOpenSlot(t *testing.T) {
	qualifiers := []QualificationEntry{
		entry(1, "A", 1),
		entry(2, "B", 1),
		entry(3, "C", 1),
	}

	pairings, err := BuildKnockoutPairings(qualifiers, 1, 0)
	require.NoError(t, err)
	require.Len(t, pairings, 2)
	last := pairings[len(pairings)-1]
	assert.NotNil(t, last.Slot1.Team)
	assert.Nil(t, last.Slot2.Team)
}

func TestBuildKnockoutPairings_NotEnoughQualifiers(t *testing.T) {
	_, err := BuildKnockoutPairings([]QualificationEntry{entry(1, "A", 1)}, 1, 0)
	assert.ErrorIs(t, err, ErrNotEnoughQualifiers)
}

func TestBuildKnockoutMatches_EightQualifiers(t *testing.T) {
	matches, err := BuildKnockoutMatches(fourGroupQualifiers(), 2, 0, KnockoutParams{
		CategoryID:       7,
		TotalCourts:      2,
		StartMatchNumber: 12,
	})
	require.NoError(t, err)
	// 4 QF + 2 empty SF + final + third place.
	require.Len(t, matches, 8)

	stages := make(map[models.MatchStage]int)
	for i, m := range matches {
		stages[m.Stage]++
		assert.Equal(t, 7, m.CategoryID)
		assert.Equal(t, 13+i, m.MatchNumber)
		assert.Equal(t, models.MatchStatusScheduled, m.Status)
	}
	assert.Equal(t, 4, stages[models.StageQuarterfinal])
	assert.Equal(t, 2, stages[models.StageSemifinal])
	assert.Equal(t, 1, stages[models.StageFinal])
	assert.Equal(t, 1, stages[models.StageThirdPlace])

	for _, m := range matches {
		if m.Stage == models.StageQuarterfinal {
			assert.NotNil(t, m.Team1ID)
			assert.NotNil(t, m.Team2ID)
		} else {
			assert.Nil(t, m.Team1ID)
			assert.Nil(t, m.Team2ID)
		}
	}
}

func TestBuildKnockoutMatches_SixQualifiersGetByes(t *testing.T) {
	qualifiers := []QualificationEntry{
		entry(1, "A", 1), entry(2, "A", 2),
		entry(3, "B", 1), entry(4, "B", 2),
		entry(5, "C", 1), entry(6, "C", 2),
	}

	matches, err := BuildKnockoutMatches(qualifiers, 2, 0, KnockoutParams{CategoryID: 1, TotalCourts: 1})
	require.NoError(t, err)
	// 2 QF + 2 SF + final + third place: two byes keep the bracket balanced.
	require.Len(t, matches, 6)

	stages := make(map[models.MatchStage]int)
	for _, m := range matches {
		stages[m.Stage]++
	}
	assert.Equal(t, 2, stages[models.StageQuarterfinal])
	assert.Equal(t, 2, stages[models.StageSemifinal])
	assert.Equal(t, 1, stages[models.StageFinal])
	assert.Equal(t, 1, stages[models.StageThirdPlace])

	// Both rank-1 byes sit in the first slot of a semifinal, the second slot
	// stays open for a quarterfinal winner.
	sf1, sf2 := matches[2], matches[3]
	require.NotNil(t, sf1.Team1ID)
	require.NotNil(t, sf2.Team1ID)
	assert.Nil(t, sf1.Team2ID)
	assert.Nil(t, sf2.Team2ID)
	assert.ElementsMatch(t, []int{1, 3}, []int{*sf1.Team1ID, *sf2.Team1ID})

	// Every quarterfinal has both slots filled, so every winner has a
	// semifinal slot to advance into.
	for _, m := range matches[:2] {
		assert.NotNil(t, m.Team1ID)
		assert.NotNil(t, m.Team2ID)
	}
}

func TestBuildKnockoutMatches_SixQualifiersAvoidByeGroupCollision(t *testing.T) {
	qualifiers := []QualificationEntry{
		entry(1, "A", 1), entry(2, "A", 2),
		entry(3, "B", 1), entry(4, "B", 2),
		entry(5, "C", 1), entry(6, "C", 2),
	}

	matches, err := BuildKnockoutMatches(qualifiers, 2, 0, KnockoutParams{CategoryID: 1, TotalCourts: 1})
	require.NoError(t, err)

	groupOf := map[int]string{}
	for _, q := range qualifiers {
		groupOf[q.Team.ID] = q.Group
	}
	quarterfinals := matches[:2]
	semifinals := matches[2:4]
	// Each semifinal holds one bye team; the quarterfinal feeding its open
	// slot must not contain a groupmate of that bye.
	for i, sf := range semifinals {
		byeGroup := groupOf[*sf.Team1ID]
		qf := quarterfinals[i]
		assert.NotEqual(t, byeGroup, groupOf[*qf.Team1ID])
		assert.NotEqual(t, byeGroup, groupOf[*qf.Team2ID])
	}
}

func TestBuildKnockoutMatches_SevenQualifiersSingleBye(t *testing.T) {
	qualifiers := []QualificationEntry{
		entry(1, "A", 1), entry(2, "B", 1), entry(3, "C", 1), entry(4, "D", 1),
		entry(5, "E", 1), entry(6, "F", 1), entry(7, "G", 1),
	}

	matches, err := BuildKnockoutMatches(qualifiers, 1, 0, KnockoutParams{CategoryID: 1, TotalCourts: 1})
	require.NoError(t, err)
	// 3 QF + 2 SF + final + third place.
	require.Len(t, matches, 7)

	sf1, sf2 := matches[3], matches[4]
	require.NotNil(t, sf1.Team1ID)
	assert.Equal(t, 1, *sf1.Team1ID, "the strongest seed takes the bye")
	assert.Nil(t, sf1.Team2ID)
	assert.Nil(t, sf2.Team1ID)
	assert.Nil(t, sf2.Team2ID)
}

func TestBuildKnockoutMatches_TooManyQualifiers(t *testing.T) {
	qualifiers := make([]QualificationEntry, 0, 9)
	for i := 1; i <= 9; i++ {
		qualifiers = append(qualifiers, entry(i, string(rune('A'+i-1)), 1))
	}

	_, err := BuildKnockoutMatches(qualifiers, 1, 0, KnockoutParams{CategoryID: 1, TotalCourts: 1})
	assert.ErrorIs(t, err, ErrTooManyQualifiers)
}

func TestSemifinalFeederSlots_RoutesEveryQuarterfinal(t *testing.T) {
	for quarterfinals := 1; quarterfinals <= 4; quarterfinals++ {
		slots := SemifinalFeederSlots(quarterfinals)
		require.Len(t, slots, quarterfinals)

		seen := map[SemifinalSlot]bool{}
		for _, s := range SemifinalByeSlots(quarterfinals) {
			seen[s] = true
		}
		for _, s := range slots {
			assert.False(t, seen[s], "slot assigned twice for %d quarterfinals", quarterfinals)
			seen[s] = true
		}
		// Every one of the four semifinal slots is either a bye slot or
		// assigned to exactly one quarterfinal winner.
		assert.Len(t, seen, 4)
	}
}

func TestBuildKnockoutMatches_FourQualifiersNoQuarterfinals(t *testing.T) {
	qualifiers := []QualificationEntry{
		entry(1, "A", 1), entry(2, "A", 2),
		entry(3, "B", 1), entry(4, "B", 2),
	}

	matches, err := BuildKnockoutMatches(qualifiers, 2, 0, KnockoutParams{CategoryID: 1, TotalCourts: 1})
	require.NoError(t, err)
	// 2 SF + final + third place, no quarterfinals.
	require.Len(t, matches, 4)

	assert.Equal(t, models.StageSemifinal, matches[0].Stage)
	assert.Equal(t, models.StageSemifinal, matches[1].Stage)
	assert.Equal(t, models.StageFinal, matches[2].Stage)
	assert.Equal(t, models.StageThirdPlace, matches[3].Stage)
}
