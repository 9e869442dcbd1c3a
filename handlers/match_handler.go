package handlers

import (
	"net/http"
	"strconv"

	"github.com/beachcup/tournament-system/models"
	"github.com/beachcup/tournament-system/services"
)

type MatchHandler struct {
	scheduleService services.ScheduleService
	matchService    services.MatchService
}

func NewMatchHandler(scheduleService services.ScheduleService, matchService services.MatchService) *MatchHandler {
	return &MatchHandler{
		scheduleService: scheduleService,
		matchService:    matchService,
	}
}

// GenerateGroupSchedule — жеребьёвка групп и генерация кругового расписания.
// Пересоздаёт все матчи категории.
func (h *MatchHandler) GenerateGroupSchedule(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		NumGroups int `json:"num_groups"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.scheduleService.GenerateGroupSchedule(r.Context(), categoryID, input.NumGroups)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

func (h *MatchHandler) Standings(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	standings, err := h.scheduleService.ComputeStandings(r.Context(), categoryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil)
}

// PreviewQualification показывает состав плей-офф без записи в базу.
func (h *MatchHandler) PreviewQualification(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	params := qualificationParamsFromQuery(r)

	qualifiers, err := h.scheduleService.PreviewQualification(r.Context(), categoryID, params.QualifyPerGroup, params.QualifyByWildcard)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"qualifiers": qualifiers}, nil)
}

// GenerateBracket фиксирует отбор и создаёт сетку плей-офф.
func (h *MatchHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	params, err := readQualificationParams(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.scheduleService.GenerateBracket(r.Context(), categoryID, params.QualifyPerGroup, params.QualifyByWildcard)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

func (h *MatchHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var stage *models.MatchStage
	if raw := r.URL.Query().Get("stage"); raw != "" {
		parsed := models.MatchStage(raw)
		stage = &parsed
	}
	var status *models.MatchStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed := models.MatchStatus(raw)
		status = &parsed
	}

	matches, err := h.matchService.ListByCategory(r.Context(), categoryID, stage, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.GetByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

// RecordResult сохраняет счёт матча и двигает победителей по сетке.
func (h *MatchHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RecordResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.RecordResult(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type qualificationParams struct {
	QualifyPerGroup   int `json:"qualify_per_group"`
	QualifyByWildcard int `json:"qualify_by_wildcard"`
}

func readQualificationParams(w http.ResponseWriter, r *http.Request) (qualificationParams, error) {
	params := qualificationParams{QualifyPerGroup: 2}
	if r.ContentLength == 0 {
		return params, nil
	}
	if err := readJSON(w, r, &params); err != nil {
		return params, err
	}
	return params, nil
}

// qualificationParamsFromQuery читает параметры отбора из query-строки
// (предпросмотр — GET без тела).
func qualificationParamsFromQuery(r *http.Request) qualificationParams {
	params := qualificationParams{QualifyPerGroup: 2}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_group")); err == nil && v > 0 {
		params.QualifyPerGroup = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("wildcards")); err == nil && v >= 0 {
		params.QualifyByWildcard = v
	}
	return params
}
