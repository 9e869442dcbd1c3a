package models

type CategoryGender string

const (
	GenderMale   CategoryGender = "male"
	GenderFemale CategoryGender = "female"
	GenderMixed  CategoryGender = "mixed"
)

// Category — соревновательная категория внутри турнира (например, "Open Male").
// Команды и матчи всегда принадлежат ровно одной категории.
type Category struct {
	ID           int            `json:"id" db:"id"`
	TournamentID int            `json:"tournament_id" db:"tournament_id"`
	Name         string         `json:"name" db:"name"`
	Gender       CategoryGender `json:"gender" db:"gender"`
	MinTeams     int            `json:"min_teams" db:"min_teams"`
	MaxTeams     int            `json:"max_teams" db:"max_teams"`

	Teams   []Team  `json:"teams,omitempty" db:"-"`
	Matches []Match `json:"matches,omitempty" db:"-"`
}
