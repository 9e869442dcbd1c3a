package brackets

// Event types pushed to live spectators and scoreboard clients.
const (
	EventMatchUpdate        = "MATCH_UPDATE"
	EventGroupPhaseComplete = "GROUP_PHASE_COMPLETE"
	EventChampionDeclared   = "CHAMPION_DECLARED"
)

// Event is an opaque envelope delivered to all clients watching a tournament.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventPublisher decouples the engine from transport: services publish events
// after a state change commits and never see connection state. Delivery is
// best-effort; a failed delivery must not affect the committed change.
type EventPublisher interface {
	Publish(tournamentID int, event Event)
}

// GroupPhaseCompletePayload announces that every group match of a category is
// finished and no knockout matches exist yet. Bracket generation stays an
// explicit organizer action.
type GroupPhaseCompletePayload struct {
	CategoryID int `json:"category_id"`
}

// ChampionDeclaredPayload announces the category winner after the final.
type ChampionDeclaredPayload struct {
	CategoryID int `json:"category_id"`
	WinnerID   int `json:"winner_id"`
}
