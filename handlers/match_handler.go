package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/repositories"
	"github.com/openliga/tournament-engine/services"
)

var errInvalidMatchday = errors.New("matchday must be a positive integer")

type MatchHandler struct {
	stageService     services.StageService
	matchService     services.MatchService
	standingsService services.StandingsService
}

func NewMatchHandler(
	stageService services.StageService,
	matchService services.MatchService,
	standingsService services.StandingsService,
) *MatchHandler {
	return &MatchHandler{
		stageService:     stageService,
		matchService:     matchService,
		standingsService: standingsService,
	}
}

type scoreInput struct {
	ScoreTeam1 *int `json:"score_team1"`
	ScoreTeam2 *int `json:"score_team2"`
}

func (h *MatchHandler) GenerateGroupStage(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.stageService.GenerateGroupStage)
}

func (h *MatchHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.stageService.GenerateEliminationBracket)
}

func (h *MatchHandler) GeneratePlayoffs(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.stageService.GeneratePlayoffBracket)
}

func (h *MatchHandler) generate(w http.ResponseWriter, r *http.Request, run func(context.Context, int) ([]*models.Match, error)) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matches, err := run(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	filter, err := parseMatchFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	standings, err := h.standingsService.GetGroupStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	h.recordScore(w, r, h.matchService.SubmitResult)
}

func (h *MatchHandler) AddSeriesGame(w http.ResponseWriter, r *http.Request) {
	h.recordScore(w, r, h.matchService.AddSeriesGame)
}

func (h *MatchHandler) recordScore(w http.ResponseWriter, r *http.Request, apply func(context.Context, int, int, int) (*models.Match, error)) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input scoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ScoreTeam1 == nil || input.ScoreTeam2 == nil {
		mapServiceErrorToHTTP(w, r, services.ErrScoresRequired)
		return
	}
	if *input.ScoreTeam1 < 0 || *input.ScoreTeam2 < 0 {
		mapServiceErrorToHTTP(w, r, services.ErrValidationFailed)
		return
	}

	match, err := apply(r.Context(), matchID, *input.ScoreTeam1, *input.ScoreTeam2)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.MatchScheduleUpdate
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Reschedule(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseMatchFilter(r *http.Request) (repositories.ListMatchesFilter, error) {
	var filter repositories.ListMatchesFilter
	query := r.URL.Query()

	if raw := query.Get("round"); raw != "" {
		round := models.Round(raw)
		filter.Round = &round
	}
	if raw := query.Get("group"); raw != "" {
		group := raw
		filter.Group = &group
	}
	if raw := query.Get("matchday"); raw != "" {
		matchday, err := strconv.Atoi(raw)
		if err != nil || matchday < 1 {
			return filter, errInvalidMatchday
		}
		filter.Matchday = &matchday
	}
	if raw := query.Get("status"); raw != "" {
		status := models.MatchStatus(raw)
		filter.Status = &status
	}
	return filter, nil
}
