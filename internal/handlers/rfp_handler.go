package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Anushre2005/swiftbid/internal/models"
	"github.com/Anushre2005/swiftbid/internal/repository"
	"github.com/Anushre2005/swiftbid/internal/services"
	"github.com/Anushre2005/swiftbid/internal/utils"
)

// RfpHandler - структура для обработки HTTP-запросов каталога и дашбордов.
type RfpHandler struct {
	Scoring *services.ScoringService
	Repo    repository.RfpRepository
	Logger  *log.Logger
	Timeout time.Duration
}

// NewRfpHandler создаёт новый экземпляр RfpHandler.
func NewRfpHandler(scoring *services.ScoringService, repo repository.RfpRepository, logger *log.Logger, timeout time.Duration) *RfpHandler {
	return &RfpHandler{
		Scoring: scoring,
		Repo:    repo,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetRfps обрабатывает запросы для получения списка RFP.
func (h *RfpHandler) GetRfps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	stages := r.URL.Query()["stage"]

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, stage := range stages {
		if !utils.ContainsStage(models.StageOrder, models.RfpStage(stage)) {
			utils.SendErrorResponse(w, http.StatusBadRequest, "unsupported stage: "+stage)
			return
		}
	}

	waitingOn := r.URL.Query().Get("waitingOn")
	if waitingOn != "" && !utils.ContainsWaitingOn(models.WaitingOnValues, models.RfpWaitingOn(waitingOn)) {
		utils.SendErrorResponse(w, http.StatusBadRequest, "unsupported waitingOn: "+waitingOn)
		return
	}

	filter := models.RfpFilter{
		Stages:    stages,
		WaitingOn: waitingOn,
		Owner:     r.URL.Query().Get("owner"),
		Risky:     r.URL.Query().Get("risk") == "high",
	}

	rfps, err := h.Repo.GetRfps(ctx, limit, offset, filter)
	if err != nil {
		h.Logger.Println(err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to fetch rfps")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(rfps); err != nil {
		h.Logger.Println(err)
	}
}

// GetRfp обрабатывает запросы для получения одного RFP.
func (h *RfpHandler) GetRfp(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")

	rfp, err := h.Repo.GetRfpByID(ctx, rfpId)
	if err != nil {
		if errors.Is(err, repository.ErrRfpNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "rfp not found")
			return
		}
		h.Logger.Println(err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to fetch rfp")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(rfp); err != nil {
		h.Logger.Println(err)
	}
}

// GetRfpStatus обрабатывает запросы для получения статуса RFP.
func (h *RfpHandler) GetRfpStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")

	status, err := h.Repo.GetRfpStatus(ctx, rfpId)
	if err != nil {
		if errors.Is(err, repository.ErrRfpNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "rfp not found")
			return
		}
		h.Logger.Println(err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to fetch rfp status")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(status); err != nil {
		h.Logger.Println(err)
	}
}

// dashboardFilterFromQuery собирает фильтры дашборда из query-параметров.
func dashboardFilterFromQuery(r *http.Request) services.DashboardFilter {
	query := r.URL.Query()
	return services.DashboardFilter{
		Search:     query.Get("search"),
		Filter:     query.Get("filter"),
		Stage:      query.Get("stage"),
		ValueRange: query.Get("valueRange"),
		Urgency:    query.Get("urgency"),
		Owner:      query.Get("owner"),
		RiskOnly:   query.Get("risk") == "high",
		Focus:      query.Get("focus"),
	}
}

// GetDashboard обрабатывает запросы дашборда продаж.
func (h *RfpHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	view, err := h.Scoring.Dashboard(ctx, dashboardFilterFromQuery(r))
	if err != nil {
		if errorResponse, ok := err.(*models.ErrorResponse); ok {
			h.Logger.Println(err)
			utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
			return
		}
		h.Logger.Println(err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(view); err != nil {
		h.Logger.Println(err)
	}
}

// GetSummary обрабатывает запросы управленческой сводки.
func (h *RfpHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary, err := h.Scoring.Summary(ctx, dashboardFilterFromQuery(r))
	if err != nil {
		if errorResponse, ok := err.(*models.ErrorResponse); ok {
			h.Logger.Println(err)
			utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
			return
		}
		h.Logger.Println(err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(summary); err != nil {
		h.Logger.Println(err)
	}
}
