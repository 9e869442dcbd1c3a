package models

import "time"

type TeamStatus string

const (
	TeamStatusPending  TeamStatus = "pending"
	TeamStatusApproved TeamStatus = "approved"
	TeamStatusRejected TeamStatus = "rejected"
)

// Team — пара игроков, зарегистрированная в категории.
// Статистика группового этапа (Wins..PointsConceded) всегда производная:
// пересчитывается калькулятором таблицы при завершении групповых матчей
// и обнуляется при жеребьёвке групп. Руками она не редактируется.
type Team struct {
	ID          int        `json:"id" db:"id"`
	CategoryID  int        `json:"category_id" db:"category_id"`
	Name        string     `json:"name" db:"name"`
	Player1Name string     `json:"player1_name" db:"player1_name"`
	Player2Name string     `json:"player2_name" db:"player2_name"`
	Seed        *int       `json:"seed,omitempty" db:"seed"`
	Status      TeamStatus `json:"status" db:"status"`
	GroupName   *string    `json:"group_name,omitempty" db:"group_name"`
	AccessCode  string     `json:"-" db:"access_code"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`

	Wins           int `json:"wins" db:"wins"`
	Losses         int `json:"losses" db:"losses"`
	SetsWon        int `json:"sets_won" db:"sets_won"`
	SetsLost       int `json:"sets_lost" db:"sets_lost"`
	PointsScored   int `json:"points_scored" db:"points_scored"`
	PointsConceded int `json:"points_conceded" db:"points_conceded"`
}

func (t *Team) SetDifference() int {
	return t.SetsWon - t.SetsLost
}

func (t *Team) PointDifference() int {
	return t.PointsScored - t.PointsConceded
}

func (t *Team) ResetStats() {
	t.Wins = 0
	t.Losses = 0
	t.SetsWon = 0
	t.SetsLost = 0
	t.PointsScored = 0
	t.PointsConceded = 0
}
