package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/beachcup/tournament-system/models"
)

var (
	ErrNotEnoughQualifiers = errors.New("not enough qualified teams (minimum 2)")
	ErrTooManyQualifiers   = errors.New("too many qualified teams for an 8-team bracket")
)

type QualifiedBy string

const (
	QualifiedByRank     QualifiedBy = "rank"
	QualifiedByWildcard QualifiedBy = "wildcard"
)

// QualificationEntry ties a qualified team to the group and rank it came from.
// Entries are ephemeral: they exist between standings computation and bracket
// pairing and are never persisted.
type QualificationEntry struct {
	Team        *models.Team `json:"team"`
	Group       string       `json:"group"`
	GroupRank   int          `json:"group_rank"`
	QualifiedBy QualifiedBy  `json:"qualified_by"`
}

// SelectQualifiers picks the knockout field from final group standings:
// the top perGroup teams of every group qualify directly by rank, then the
// remaining teams of all groups are pooled and the best wildcards of the pool
// fill the remaining spots (see SortWildcardPool for the pool ordering).
func SelectQualifiers(standings map[string][]*models.Team, perGroup, wildcards int) ([]QualificationEntry, error) {
	if perGroup < 0 || wildcards < 0 {
		return nil, fmt.Errorf("invalid qualification counts: perGroup=%d wildcards=%d", perGroup, wildcards)
	}

	names := make([]string, 0, len(standings))
	for name := range standings {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]QualificationEntry, 0)
	type pooled struct {
		team  *models.Team
		group string
		rank  int
	}
	pool := make([]pooled, 0)

	for _, name := range names {
		ranked := standings[name]
		for i, team := range ranked {
			if i < perGroup {
				entries = append(entries, QualificationEntry{
					Team:        team,
					Group:       name,
					GroupRank:   i + 1,
					QualifiedBy: QualifiedByRank,
				})
			} else {
				pool = append(pool, pooled{team: team, group: name, rank: i + 1})
			}
		}
	}

	if wildcards > 0 && len(pool) > 0 {
		poolTeams := make([]*models.Team, len(pool))
		byTeamID := make(map[int]pooled, len(pool))
		for i, p := range pool {
			poolTeams[i] = p.team
			byTeamID[p.team.ID] = p
		}
		SortWildcardPool(poolTeams)

		take := wildcards
		if take > len(poolTeams) {
			take = len(poolTeams)
		}
		for _, team := range poolTeams[:take] {
			p := byTeamID[team.ID]
			entries = append(entries, QualificationEntry{
				Team:        team,
				Group:       p.group,
				GroupRank:   p.rank,
				QualifiedBy: QualifiedByWildcard,
			})
		}
	}

	if len(entries) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughQualifiers, len(entries))
	}
	return entries, nil
}
