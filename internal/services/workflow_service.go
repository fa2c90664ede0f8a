package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Anushre2005/swiftbid/internal/models"
	"github.com/Anushre2005/swiftbid/internal/repository"

	"github.com/google/uuid"
)

// timestampLayout повторяет формат отметок времени, который видят пользователи.
const timestampLayout = "Jan 2, 2006, 03:04 PM"

// StageAdvancer - точка расширения для реального продвижения RFP по этапам.
type StageAdvancer interface {
	AdvanceStage(ctx context.Context, rfpId string) (*models.Rfp, error)
}

// WorkflowService отвечает за цикл запросов на изменения между отделом
// продаж и проверяющими командами.
type WorkflowService struct {
	Repo     repository.WorkflowRepository
	Rfps     repository.RfpRepository
	Advancer StageAdvancer
	now      func() time.Time
}

// NewWorkflowService создаёт новый экземпляр WorkflowService.
// advancer может быть nil, тогда approve & advance не двигает этап.
func NewWorkflowService(repo repository.WorkflowRepository, rfps repository.RfpRepository, advancer StageAdvancer) *WorkflowService {
	return &WorkflowService{Repo: repo, Rfps: rfps, Advancer: advancer, now: time.Now}
}

// checkRfpExists проверяет существование RFP перед любой операцией.
func (s *WorkflowService) checkRfpExists(ctx context.Context, rfpId string) error {
	exists, err := s.Rfps.RfpExists(ctx, rfpId)
	if err != nil {
		return models.NewErrorResponse(http.StatusInternalServerError, "internal server error")
	}
	if !exists {
		return models.NewNotFoundError("rfp not found")
	}
	return nil
}

// SubmitChangeRequest создает запрос на изменения от проверяющей команды.
func (s *WorkflowService) SubmitChangeRequest(ctx context.Context, rfpId string, role models.UserRole, fields models.ChangeRequestFields) (*models.ChangeRequest, error) {
	if role != models.TechRole && role != models.PricingRole {
		return nil, models.NewPermissionDenied("only tech or pricing reviewers can request changes")
	}

	if err := s.checkRfpExists(ctx, rfpId); err != nil {
		return nil, err
	}

	if fields.WhatChanges == "" || fields.Why == "" || fields.Effect == "" || fields.HowItMatters == "" {
		return nil, models.NewValidationError("missing required fields")
	}

	existing, err := s.Repo.ListChangeRequests(ctx, rfpId)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to list change requests")
	}
	for _, request := range existing {
		if request.Status == models.PendingRequest && request.RequestedBy == role {
			return nil, models.NewInvalidStateError("a pending change request from this role already exists")
		}
	}

	newRequest := models.ChangeRequest{
		ID:           uuid.New().String(),
		RfpID:        rfpId,
		RequestedBy:  role,
		Timestamp:    s.now().Format(timestampLayout),
		WhatChanges:  fields.WhatChanges,
		Why:          fields.Why,
		Effect:       fields.Effect,
		HowItMatters: fields.HowItMatters,
		Status:       models.PendingRequest,
	}
	if err := s.Repo.AppendChangeRequest(ctx, rfpId, newRequest); err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to save change request")
	}
	return &newRequest, nil
}

// MarkRevised переводит запрос из pending в revised. Доступно только отделу продаж.
func (s *WorkflowService) MarkRevised(ctx context.Context, rfpId, requestId string, role models.UserRole) (*models.ChangeRequest, error) {
	if role != models.SalesRole {
		return nil, models.NewPermissionDenied("only sales can mark a change request as revised")
	}

	if err := s.checkRfpExists(ctx, rfpId); err != nil {
		return nil, err
	}

	request, err := s.Repo.GetChangeRequest(ctx, rfpId, requestId)
	if err != nil {
		if errors.Is(err, repository.ErrChangeRequestNotFound) {
			return nil, models.NewNotFoundError("change request not found")
		}
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to fetch change request")
	}

	if request.Status != models.PendingRequest {
		return nil, models.NewInvalidStateError("change request is not pending")
	}
	updated, err := s.Repo.SetChangeRequestStatus(ctx, rfpId, requestId, models.RevisedRequest)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to update change request")
	}
	return updated, nil
}

// ApproveRevision одобряет все revised-запросы действующей роли. Отсутствие
// подходящих запросов не является ошибкой.
func (s *WorkflowService) ApproveRevision(ctx context.Context, rfpId string, role models.UserRole) (int, error) {
	if role != models.TechRole && role != models.PricingRole && role != models.ManagementRole {
		return 0, models.NewPermissionDenied("only reviewers can approve revised changes")
	}

	if err := s.checkRfpExists(ctx, rfpId); err != nil {
		return 0, err
	}

	approved, err := s.Repo.ApproveRevisedBy(ctx, rfpId, role)
	if err != nil {
		return 0, models.NewErrorResponse(http.StatusInternalServerError, "failed to approve change requests")
	}
	return approved, nil
}

// ApproveAndAdvance одобряет RFP и продвигает его на следующий этап.
// Недоступно, пока у действующей роли есть revised-запросы, ожидающие её одобрения.
func (s *WorkflowService) ApproveAndAdvance(ctx context.Context, rfpId string, role models.UserRole) (*models.Rfp, error) {
	if role != models.TechRole && role != models.PricingRole && role != models.ManagementRole {
		return nil, models.NewPermissionDenied("only reviewers can approve an rfp")
	}

	if err := s.checkRfpExists(ctx, rfpId); err != nil {
		return nil, err
	}

	requests, err := s.Repo.ListChangeRequests(ctx, rfpId)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to list change requests")
	}
	for _, request := range requests {
		if request.Status == models.RevisedRequest && request.RequestedBy == role {
			return nil, models.NewInvalidStateError("revised change requests are awaiting your approval")
		}
	}

	if s.Advancer == nil {
		rfp, err := s.Rfps.GetRfpByID(ctx, rfpId)
		if err != nil {
			return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to fetch rfp")
		}
		return rfp, nil
	}

	rfp, err := s.Advancer.AdvanceStage(ctx, rfpId)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to advance rfp stage")
	}
	return rfp, nil
}

// IsInRevision сообщает, находится ли RFP в ревизии (есть pending-запросы).
func (s *WorkflowService) IsInRevision(ctx context.Context, rfpId string) (bool, error) {
	requests, err := s.Repo.ListChangeRequests(ctx, rfpId)
	if err != nil {
		return false, models.NewErrorResponse(http.StatusInternalServerError, "failed to list change requests")
	}
	for _, request := range requests {
		if request.Status == models.PendingRequest {
			return true, nil
		}
	}
	return false, nil
}

// PendingRequests возвращает pending-запросы в порядке создания.
func (s *WorkflowService) PendingRequests(ctx context.Context, rfpId string) ([]models.ChangeRequest, error) {
	requests, err := s.Repo.ListChangeRequests(ctx, rfpId)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to list change requests")
	}

	var pending []models.ChangeRequest
	for _, request := range requests {
		if request.Status == models.PendingRequest {
			pending = append(pending, request)
		}
	}
	return pending, nil
}

// PendingTeams возвращает роли с pending-запросами в порядке первого появления.
// Список питает баннер ревизии на стороне отдела продаж.
func (s *WorkflowService) PendingTeams(ctx context.Context, rfpId string) ([]models.UserRole, error) {
	pending, err := s.PendingRequests(ctx, rfpId)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.UserRole]bool)
	var teams []models.UserRole
	for _, request := range pending {
		if !seen[request.RequestedBy] {
			seen[request.RequestedBy] = true
			teams = append(teams, request.RequestedBy)
		}
	}
	return teams, nil
}

// FetchChangeRequests возвращает запросы для RFP, опционально по статусу.
func (s *WorkflowService) FetchChangeRequests(ctx context.Context, rfpId, status string) ([]models.ChangeRequest, error) {
	if err := s.checkRfpExists(ctx, rfpId); err != nil {
		return nil, err
	}

	allowedStatuses := map[models.ChangeRequestStatus]bool{
		models.PendingRequest:  true,
		models.RevisedRequest:  true,
		models.ApprovedRequest: true,
	}
	if status != "" && !allowedStatuses[models.ChangeRequestStatus(status)] {
		return nil, models.NewValidationError("invalid status, must be 'pending', 'revised' or 'approved'")
	}

	requests, err := s.Repo.ListChangeRequests(ctx, rfpId)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to list change requests")
	}
	if status == "" {
		return requests, nil
	}

	var filtered []models.ChangeRequest
	for _, request := range requests {
		if request.Status == models.ChangeRequestStatus(status) {
			filtered = append(filtered, request)
		}
	}
	return filtered, nil
}

// AddComment создает комментарий отдела продаж для одной из команд.
func (s *WorkflowService) AddComment(ctx context.Context, rfpId string, track models.CommentTrack, role models.UserRole, commentReq models.CommentRequest) (*models.Comment, error) {
	if track != models.TechTrack && track != models.PricingTrack {
		return nil, models.NewValidationError("invalid track, must be 'tech' or 'pricing'")
	}
	if role != models.SalesRole {
		return nil, models.NewPermissionDenied("only sales can leave comments")
	}
	if commentReq.Text == "" {
		return nil, models.NewValidationError("comment text is required")
	}

	if err := s.checkRfpExists(ctx, rfpId); err != nil {
		return nil, err
	}

	newComment := models.Comment{
		ID:        uuid.New().String(),
		Text:      commentReq.Text,
		Timestamp: s.now().Format(timestampLayout),
	}
	if err := s.Repo.AppendComment(ctx, rfpId, track, newComment); err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to save comment")
	}
	return &newComment, nil
}

// FetchComments возвращает комментарии команды в порядке создания.
func (s *WorkflowService) FetchComments(ctx context.Context, rfpId string, track models.CommentTrack) ([]models.Comment, error) {
	if track != models.TechTrack && track != models.PricingTrack {
		return nil, models.NewValidationError("invalid track, must be 'tech' or 'pricing'")
	}

	if err := s.checkRfpExists(ctx, rfpId); err != nil {
		return nil, err
	}

	comments, err := s.Repo.ListComments(ctx, rfpId, track)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to list comments")
	}
	return comments, nil
}
