package services

import "errors"

// Общие ошибки сервисного слоя, используемые в маппинге HTTP.
var (
	// Ресурсы
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrUserNotFound       = errors.New("user not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed  = errors.New("validation failed")
	ErrInvalidSetScores  = errors.New("invalid set scores")
	ErrWinnerRequired    = errors.New("a finished match requires a winner")
	ErrWinnerNotInMatch  = errors.New("winner must be one of the two match teams")
	ErrTeamNameRequired  = errors.New("team name is required")
	ErrPlayerNamesNeeded = errors.New("both player names are required")

	// Ошибки конфликтов
	ErrUserEmailConflict = errors.New("email address is already in use")
	ErrTeamNameConflict  = errors.New("team name is already in use in this category")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ошибки турниров
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCourts           = errors.New("tournament must have at least one court")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
