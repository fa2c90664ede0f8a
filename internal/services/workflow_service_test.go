package services

import (
	"context"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/Anushre2005/swiftbid/internal/models"
	"github.com/Anushre2005/swiftbid/internal/repository"
)

type fakeRfpRepo struct {
	rfps map[string]*models.Rfp
}

func newFakeRfpRepo(rfps ...models.Rfp) *fakeRfpRepo {
	repo := &fakeRfpRepo{rfps: make(map[string]*models.Rfp)}
	for i := range rfps {
		rfp := rfps[i]
		repo.rfps[rfp.ID] = &rfp
	}
	return repo
}

func (f *fakeRfpRepo) GetRfps(ctx context.Context, limit, offset int, filter models.RfpFilter) ([]models.Rfp, error) {
	var rfps []models.Rfp
	for _, rfp := range f.rfps {
		rfps = append(rfps, *rfp)
	}
	return rfps, nil
}

func (f *fakeRfpRepo) GetRfpByID(ctx context.Context, rfpId string) (*models.Rfp, error) {
	rfp, ok := f.rfps[rfpId]
	if !ok {
		return nil, repository.ErrRfpNotFound
	}
	found := *rfp
	return &found, nil
}

func (f *fakeRfpRepo) RfpExists(ctx context.Context, rfpId string) (bool, error) {
	_, ok := f.rfps[rfpId]
	return ok, nil
}

func (f *fakeRfpRepo) GetRfpStatus(ctx context.Context, rfpId string) (models.RfpStatus, error) {
	rfp, err := f.GetRfpByID(ctx, rfpId)
	if err != nil {
		return "", err
	}
	return rfp.EffectiveStatus(), nil
}

func (f *fakeRfpRepo) AdvanceStage(ctx context.Context, rfpId string) (*models.Rfp, error) {
	rfp, ok := f.rfps[rfpId]
	if !ok {
		return nil, repository.ErrRfpNotFound
	}
	for i, stage := range models.StageOrder {
		if stage == rfp.CurrentStage && i+1 < len(models.StageOrder) {
			rfp.CurrentStage = models.StageOrder[i+1]
			break
		}
	}
	advanced := *rfp
	return &advanced, nil
}

func newTestWorkflowService(rfps ...models.Rfp) (*WorkflowService, *fakeRfpRepo) {
	logger := log.New(io.Discard, "", 0)
	rfpRepo := newFakeRfpRepo(rfps...)
	workflowRepo := repository.NewMemoryWorkflowRepository(nil, logger)
	service := NewWorkflowService(workflowRepo, rfpRepo, rfpRepo)
	service.now = func() time.Time {
		return time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)
	}
	return service, rfpRepo
}

func testRfp() models.Rfp {
	return models.Rfp{
		ID:           "rfp-001",
		Client:       "Meridian Bank",
		Title:        "Core Banking Platform Migration",
		Value:        "$2.4M",
		CurrentStage: models.Tech,
		WaitingOn:    models.WaitingOnTech,
	}
}

func validFields() models.ChangeRequestFields {
	return models.ChangeRequestFields{
		WhatChanges:  "Update the security architecture section",
		Why:          "Current draft references a deprecated SSO flow",
		Effect:       "Solution diagram and pricing assumptions change",
		HowItMatters: "Client flagged SSO as a hard requirement",
	}
}

func errStatus(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	errorResponse, ok := err.(*models.ErrorResponse)
	if !ok {
		t.Fatalf("expected *models.ErrorResponse, got %T: %v", err, err)
	}
	return errorResponse.StatusCode
}

func TestIsInRevisionWithoutRequests(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())

	inRevision, err := service.IsInRevision(context.Background(), "rfp-001")
	if err != nil {
		t.Fatalf("IsInRevision returned error: %v", err)
	}
	if inRevision {
		t.Error("rfp without change requests should not be in revision")
	}
}

func TestSubmitChangeRequest(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	request, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if err != nil {
		t.Fatalf("SubmitChangeRequest returned error: %v", err)
	}
	if request.Status != models.PendingRequest {
		t.Errorf("new request status = %s, want pending", request.Status)
	}
	if request.RequestedBy != models.TechRole {
		t.Errorf("requestedBy = %s, want tech", request.RequestedBy)
	}
	if request.Timestamp != "Jan 15, 2025, 10:30 AM" {
		t.Errorf("timestamp = %q, want formatted creation time", request.Timestamp)
	}

	inRevision, err := service.IsInRevision(ctx, "rfp-001")
	if err != nil {
		t.Fatalf("IsInRevision returned error: %v", err)
	}
	if !inRevision {
		t.Error("rfp should be in revision after a change request")
	}

	requests, err := service.FetchChangeRequests(ctx, "rfp-001", "")
	if err != nil {
		t.Fatalf("FetchChangeRequests returned error: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected exactly one change request, got %d", len(requests))
	}
}

func TestSubmitChangeRequestRoles(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	for _, role := range []models.UserRole{models.SalesRole, models.ManagementRole, ""} {
		_, err := service.SubmitChangeRequest(ctx, "rfp-001", role, validFields())
		if status := errStatus(t, err); status != http.StatusForbidden {
			t.Errorf("role %q: status = %d, want %d", role, status, http.StatusForbidden)
		}
	}

	inRevision, _ := service.IsInRevision(ctx, "rfp-001")
	if inRevision {
		t.Error("denied submissions must not mutate state")
	}
}

func TestSubmitChangeRequestValidation(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	cases := []struct {
		name   string
		fields models.ChangeRequestFields
	}{
		{"missing whatChanges", models.ChangeRequestFields{Why: "w", Effect: "e", HowItMatters: "h"}},
		{"missing why", models.ChangeRequestFields{WhatChanges: "c", Effect: "e", HowItMatters: "h"}},
		{"missing effect", models.ChangeRequestFields{WhatChanges: "c", Why: "w", HowItMatters: "h"}},
		{"missing howItMatters", models.ChangeRequestFields{WhatChanges: "c", Why: "w", Effect: "e"}},
		{"all empty", models.ChangeRequestFields{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, tc.fields)
			if status := errStatus(t, err); status != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", status, http.StatusBadRequest)
			}

			requests, _ := service.FetchChangeRequests(ctx, "rfp-001", "")
			if len(requests) != 0 {
				t.Error("failed validation must not create a request")
			}
		})
	}
}

func TestSubmitChangeRequestDuplicatePending(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	if _, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields()); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	_, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if status := errStatus(t, err); status != http.StatusConflict {
		t.Errorf("duplicate pending status = %d, want %d", status, http.StatusConflict)
	}

	// other role is allowed to raise its own request
	if _, err := service.SubmitChangeRequest(ctx, "rfp-001", models.PricingRole, validFields()); err != nil {
		t.Fatalf("pricing submission failed: %v", err)
	}
}

func TestSubmitChangeRequestUnknownRfp(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())

	_, err := service.SubmitChangeRequest(context.Background(), "rfp-404", models.TechRole, validFields())
	if status := errStatus(t, err); status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestMarkRevised(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	request, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if err != nil {
		t.Fatalf("SubmitChangeRequest returned error: %v", err)
	}

	updated, err := service.MarkRevised(ctx, "rfp-001", request.ID, models.SalesRole)
	if err != nil {
		t.Fatalf("MarkRevised returned error: %v", err)
	}
	if updated.Status != models.RevisedRequest {
		t.Errorf("status = %s, want revised", updated.Status)
	}

	inRevision, _ := service.IsInRevision(ctx, "rfp-001")
	if inRevision {
		t.Error("rfp should leave revision once its only pending request is revised")
	}
}

func TestMarkRevisedPermissions(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	request, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if err != nil {
		t.Fatalf("SubmitChangeRequest returned error: %v", err)
	}

	for _, role := range []models.UserRole{models.TechRole, models.PricingRole, models.ManagementRole, ""} {
		_, err := service.MarkRevised(ctx, "rfp-001", request.ID, role)
		if status := errStatus(t, err); status != http.StatusForbidden {
			t.Errorf("role %q: status = %d, want %d", role, status, http.StatusForbidden)
		}
	}

	requests, _ := service.FetchChangeRequests(ctx, "rfp-001", "pending")
	if len(requests) != 1 {
		t.Error("denied mark-revised must leave the request pending")
	}
}

func TestMarkRevisedNotFound(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())

	_, err := service.MarkRevised(context.Background(), "rfp-001", "missing-id", models.SalesRole)
	if status := errStatus(t, err); status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestMarkRevisedInvalidState(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	request, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if err != nil {
		t.Fatalf("SubmitChangeRequest returned error: %v", err)
	}
	if _, err := service.MarkRevised(ctx, "rfp-001", request.ID, models.SalesRole); err != nil {
		t.Fatalf("MarkRevised returned error: %v", err)
	}

	// revised request cannot be marked revised twice
	_, err = service.MarkRevised(ctx, "rfp-001", request.ID, models.SalesRole)
	if status := errStatus(t, err); status != http.StatusConflict {
		t.Errorf("status = %d, want %d", status, http.StatusConflict)
	}
}

func TestApproveRevision(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	techRequest, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if err != nil {
		t.Fatalf("tech submission failed: %v", err)
	}
	if _, err := service.SubmitChangeRequest(ctx, "rfp-001", models.PricingRole, validFields()); err != nil {
		t.Fatalf("pricing submission failed: %v", err)
	}
	if _, err := service.MarkRevised(ctx, "rfp-001", techRequest.ID, models.SalesRole); err != nil {
		t.Fatalf("MarkRevised returned error: %v", err)
	}

	approved, err := service.ApproveRevision(ctx, "rfp-001", models.TechRole)
	if err != nil {
		t.Fatalf("ApproveRevision returned error: %v", err)
	}
	if approved != 1 {
		t.Errorf("approved = %d, want 1", approved)
	}

	requests, _ := service.FetchChangeRequests(ctx, "rfp-001", "")
	for _, request := range requests {
		switch request.RequestedBy {
		case models.TechRole:
			if request.Status != models.ApprovedRequest {
				t.Errorf("tech request status = %s, want approved", request.Status)
			}
		case models.PricingRole:
			if request.Status != models.PendingRequest {
				t.Errorf("pricing request status = %s, want pending (untouched)", request.Status)
			}
		}
	}

	// approval is idempotent: nothing left in revised for tech
	approved, err = service.ApproveRevision(ctx, "rfp-001", models.TechRole)
	if err != nil {
		t.Fatalf("second ApproveRevision returned error: %v", err)
	}
	if approved != 0 {
		t.Errorf("second approval approved = %d, want 0", approved)
	}
}

func TestApproveRevisionBySales(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())

	_, err := service.ApproveRevision(context.Background(), "rfp-001", models.SalesRole)
	if status := errStatus(t, err); status != http.StatusForbidden {
		t.Errorf("status = %d, want %d", status, http.StatusForbidden)
	}
}

func TestApprovedRequestIsTerminal(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	request, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if err != nil {
		t.Fatalf("SubmitChangeRequest returned error: %v", err)
	}
	if _, err := service.MarkRevised(ctx, "rfp-001", request.ID, models.SalesRole); err != nil {
		t.Fatalf("MarkRevised returned error: %v", err)
	}
	if _, err := service.ApproveRevision(ctx, "rfp-001", models.TechRole); err != nil {
		t.Fatalf("ApproveRevision returned error: %v", err)
	}

	_, err = service.MarkRevised(ctx, "rfp-001", request.ID, models.SalesRole)
	if status := errStatus(t, err); status != http.StatusConflict {
		t.Errorf("mark-revised on approved: status = %d, want %d", status, http.StatusConflict)
	}
}

func TestApproveAndAdvance(t *testing.T) {
	service, rfpRepo := newTestWorkflowService(testRfp())
	ctx := context.Background()

	rfp, err := service.ApproveAndAdvance(ctx, "rfp-001", models.TechRole)
	if err != nil {
		t.Fatalf("ApproveAndAdvance returned error: %v", err)
	}
	if rfp.CurrentStage != models.Pricing {
		t.Errorf("stage = %s, want Pricing", rfp.CurrentStage)
	}
	if rfpRepo.rfps["rfp-001"].CurrentStage != models.Pricing {
		t.Error("advance must be visible in the repository")
	}
}

func TestApproveAndAdvanceBlockedByRevised(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	request, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields())
	if err != nil {
		t.Fatalf("SubmitChangeRequest returned error: %v", err)
	}
	if _, err := service.MarkRevised(ctx, "rfp-001", request.ID, models.SalesRole); err != nil {
		t.Fatalf("MarkRevised returned error: %v", err)
	}

	_, err = service.ApproveAndAdvance(ctx, "rfp-001", models.TechRole)
	if status := errStatus(t, err); status != http.StatusConflict {
		t.Errorf("status = %d, want %d", status, http.StatusConflict)
	}

	// pricing has no revised requests of its own and may advance
	if _, err := service.ApproveAndAdvance(ctx, "rfp-001", models.PricingRole); err != nil {
		t.Fatalf("pricing advance failed: %v", err)
	}
}

func TestApproveAndAdvanceBySales(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())

	_, err := service.ApproveAndAdvance(context.Background(), "rfp-001", models.SalesRole)
	if status := errStatus(t, err); status != http.StatusForbidden {
		t.Errorf("status = %d, want %d", status, http.StatusForbidden)
	}
}

func TestPendingTeamsOrder(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	if _, err := service.SubmitChangeRequest(ctx, "rfp-001", models.PricingRole, validFields()); err != nil {
		t.Fatalf("pricing submission failed: %v", err)
	}
	if _, err := service.SubmitChangeRequest(ctx, "rfp-001", models.TechRole, validFields()); err != nil {
		t.Fatalf("tech submission failed: %v", err)
	}

	teams, err := service.PendingTeams(ctx, "rfp-001")
	if err != nil {
		t.Fatalf("PendingTeams returned error: %v", err)
	}
	if len(teams) != 2 || teams[0] != models.PricingRole || teams[1] != models.TechRole {
		t.Errorf("teams = %v, want [pricing tech] in first-occurrence order", teams)
	}
}

func TestComments(t *testing.T) {
	service, _ := newTestWorkflowService(testRfp())
	ctx := context.Background()

	if _, err := service.AddComment(ctx, "rfp-001", models.TechTrack, models.TechRole, models.CommentRequest{Text: "note"}); err == nil {
		t.Error("non-sales comment should be rejected")
	}
	_, err := service.AddComment(ctx, "rfp-001", models.TechTrack, models.SalesRole, models.CommentRequest{})
	if status := errStatus(t, err); status != http.StatusBadRequest {
		t.Errorf("empty text: status = %d, want %d", status, http.StatusBadRequest)
	}
	_, err = service.AddComment(ctx, "rfp-001", models.CommentTrack("legal"), models.SalesRole, models.CommentRequest{Text: "note"})
	if status := errStatus(t, err); status != http.StatusBadRequest {
		t.Errorf("bad track: status = %d, want %d", status, http.StatusBadRequest)
	}

	first, err := service.AddComment(ctx, "rfp-001", models.TechTrack, models.SalesRole, models.CommentRequest{Text: "please re-check the SSO flow"})
	if err != nil {
		t.Fatalf("AddComment returned error: %v", err)
	}
	second, err := service.AddComment(ctx, "rfp-001", models.TechTrack, models.SalesRole, models.CommentRequest{Text: "client confirmed the requirement"})
	if err != nil {
		t.Fatalf("AddComment returned error: %v", err)
	}

	comments, err := service.FetchComments(ctx, "rfp-001", models.TechTrack)
	if err != nil {
		t.Fatalf("FetchComments returned error: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != first.ID || comments[1].ID != second.ID {
		t.Error("comments must keep insertion order")
	}

	pricingComments, err := service.FetchComments(ctx, "rfp-001", models.PricingTrack)
	if err != nil {
		t.Fatalf("FetchComments returned error: %v", err)
	}
	if len(pricingComments) != 0 {
		t.Error("tracks must be disjoint collections")
	}
}
