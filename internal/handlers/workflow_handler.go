package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Anushre2005/swiftbid/internal/models"
	"github.com/Anushre2005/swiftbid/internal/services"
	"github.com/Anushre2005/swiftbid/internal/utils"
)

// WorkflowHandler - структура для обработки HTTP-запросов цикла ревизий.
type WorkflowHandler struct {
	Service *services.WorkflowService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewWorkflowHandler создаёт новый экземпляр WorkflowHandler.
func NewWorkflowHandler(service *services.WorkflowService, logger *log.Logger, timeout time.Duration) *WorkflowHandler {
	return &WorkflowHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// respond сериализует успешный ответ.
func (h *WorkflowHandler) respond(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Println(err)
	}
}

// fail отправляет ошибку сервиса клиенту.
func (h *WorkflowHandler) fail(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Println(err)
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	h.Logger.Println(err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

// SubmitChangeRequest обрабатывает запросы на создание запроса на изменения.
func (h *WorkflowHandler) SubmitChangeRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")
	role := models.UserRole(r.URL.Query().Get("role"))

	var fields models.ChangeRequestFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request, err := h.Service.SubmitChangeRequest(ctx, rfpId, role, fields)
	if err != nil {
		h.fail(w, err, "failed to submit change request")
		return
	}
	h.respond(w, request)
}

// GetChangeRequests обрабатывает запросы на получение запросов на изменения.
func (h *WorkflowHandler) GetChangeRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")
	status := r.URL.Query().Get("status")

	requests, err := h.Service.FetchChangeRequests(ctx, rfpId, status)
	if err != nil {
		h.fail(w, err, "failed to fetch change requests")
		return
	}
	h.respond(w, requests)
}

// MarkRevised обрабатывает запросы отдела продаж на пометку запроса как revised.
func (h *WorkflowHandler) MarkRevised(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")
	requestId := r.PathValue("requestId")
	role := models.UserRole(r.URL.Query().Get("role"))

	request, err := h.Service.MarkRevised(ctx, rfpId, requestId, role)
	if err != nil {
		h.fail(w, err, "failed to mark change request as revised")
		return
	}
	h.respond(w, request)
}

// ApproveRevision обрабатывает запросы на одобрение revised-запросов роли.
func (h *WorkflowHandler) ApproveRevision(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")
	role := models.UserRole(r.URL.Query().Get("role"))

	approved, err := h.Service.ApproveRevision(ctx, rfpId, role)
	if err != nil {
		h.fail(w, err, "failed to approve change requests")
		return
	}
	h.respond(w, map[string]int{"approved": approved})
}

// ApproveAndAdvance обрабатывает запросы на одобрение и продвижение RFP.
func (h *WorkflowHandler) ApproveAndAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")
	role := models.UserRole(r.URL.Query().Get("role"))

	rfp, err := h.Service.ApproveAndAdvance(ctx, rfpId, role)
	if err != nil {
		h.fail(w, err, "failed to approve rfp")
		return
	}
	h.respond(w, rfp)
}

// GetRevisionStatus обрабатывает запросы состояния ревизии для баннера продаж.
func (h *WorkflowHandler) GetRevisionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")

	inRevision, err := h.Service.IsInRevision(ctx, rfpId)
	if err != nil {
		h.fail(w, err, "failed to check revision state")
		return
	}

	pendingTeams, err := h.Service.PendingTeams(ctx, rfpId)
	if err != nil {
		h.fail(w, err, "failed to collect pending teams")
		return
	}

	pending, err := h.Service.PendingRequests(ctx, rfpId)
	if err != nil {
		h.fail(w, err, "failed to list pending requests")
		return
	}

	h.respond(w, map[string]interface{}{
		"inRevision":      inRevision,
		"pendingTeams":    pendingTeams,
		"pendingRequests": pending,
	})
}

// GetComments обрабатывает запросы на получение комментариев команды.
func (h *WorkflowHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")
	track := models.CommentTrack(r.PathValue("track"))

	comments, err := h.Service.FetchComments(ctx, rfpId, track)
	if err != nil {
		h.fail(w, err, "failed to fetch comments")
		return
	}
	h.respond(w, comments)
}

// AddComment обрабатывает запросы отдела продаж на создание комментария.
func (h *WorkflowHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfpId := r.PathValue("rfpId")
	track := models.CommentTrack(r.PathValue("track"))
	role := models.UserRole(r.URL.Query().Get("role"))

	var commentReq models.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&commentReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.Service.AddComment(ctx, rfpId, track, role, commentReq)
	if err != nil {
		h.fail(w, err, "failed to add comment")
		return
	}
	h.respond(w, comment)
}
