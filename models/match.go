package models

import "time"

type MatchStage string

const (
	StageGroup        MatchStage = "group"
	StageQuarterfinal MatchStage = "quarterfinal"
	StageSemifinal    MatchStage = "semifinal"
	StageFinal        MatchStage = "final"
	StageThirdPlace   MatchStage = "third_place"
)

// IsKnockout reports whether the stage belongs to the knockout phase.
func (s MatchStage) IsKnockout() bool {
	return s != StageGroup
}

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
)

// SetScore — очки одной партии (best of 3). Партия 0:0 считается несыгранной.
type SetScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Match — матч категории. Для матчей плей-офф Team1ID/Team2ID остаются NULL,
// пока их не заполнит машина продвижения по результатам предыдущего круга.
// MatchNumber — сквозной номер внутри категории; RoundNumber и GroupName
// заполняются только для группового этапа.
type Match struct {
	ID          int         `json:"id" db:"id"`
	CategoryID  int         `json:"category_id" db:"category_id"`
	Team1ID     *int        `json:"team1_id" db:"team1_id"`
	Team2ID     *int        `json:"team2_id" db:"team2_id"`
	Stage       MatchStage  `json:"stage" db:"stage"`
	Status      MatchStatus `json:"status" db:"status"`
	MatchNumber int         `json:"match_number" db:"match_number"`
	RoundNumber *int        `json:"round_number,omitempty" db:"round_number"`
	GroupName   *string     `json:"group_name,omitempty" db:"group_name"`
	CourtNumber int         `json:"court_number" db:"court_number"`
	// ScheduledTime — ориентировочное время старта, проставляется генератором
	// расписания.
	ScheduledTime *time.Time `json:"scheduled_time,omitempty" db:"scheduled_time"`
	Sets          []SetScore `json:"sets"`
	WinnerID      *int       `json:"winner_id,omitempty" db:"winner_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	Team1 *Team `json:"team1,omitempty" db:"-"`
	Team2 *Team `json:"team2,omitempty" db:"-"`
}

// HasTeam reports whether the given team occupies one of the match slots.
func (m *Match) HasTeam(teamID int) bool {
	return (m.Team1ID != nil && *m.Team1ID == teamID) ||
		(m.Team2ID != nil && *m.Team2ID == teamID)
}

// LoserID возвращает проигравшего завершённого матча (нужно для матча за 3-е место).
func (m *Match) LoserID() *int {
	if m.WinnerID == nil || m.Team1ID == nil || m.Team2ID == nil {
		return nil
	}
	if *m.WinnerID == *m.Team1ID {
		return m.Team2ID
	}
	return m.Team1ID
}
