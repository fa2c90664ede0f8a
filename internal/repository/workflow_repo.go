package repository

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/Anushre2005/swiftbid/internal/models"
)

// ErrChangeRequestNotFound возвращается, когда запрос на изменения отсутствует у RFP.
var ErrChangeRequestNotFound = errors.New("change request not found")

// SnapshotStore - интерфейс внешнего key-value хранилища для снимков
// рабочих артефактов. Запись выполняется по принципу best-effort: сбой
// хранилища не должен отменять изменение в памяти.
type SnapshotStore interface {
	SaveChangeRequests(ctx context.Context, rfpId string, requests []models.ChangeRequest) error
	LoadChangeRequests(ctx context.Context, rfpId string) ([]models.ChangeRequest, error)
	SaveComments(ctx context.Context, rfpId string, track models.CommentTrack, comments []models.Comment) error
	LoadComments(ctx context.Context, rfpId string, track models.CommentTrack) ([]models.Comment, error)
}

// WorkflowRepository - интерфейс для работы с запросами на изменения и комментариями.
type WorkflowRepository interface {
	ListChangeRequests(ctx context.Context, rfpId string) ([]models.ChangeRequest, error)
	AppendChangeRequest(ctx context.Context, rfpId string, request models.ChangeRequest) error
	GetChangeRequest(ctx context.Context, rfpId, requestId string) (*models.ChangeRequest, error)
	SetChangeRequestStatus(ctx context.Context, rfpId, requestId string, status models.ChangeRequestStatus) (*models.ChangeRequest, error)
	ApproveRevisedBy(ctx context.Context, rfpId string, role models.UserRole) (int, error)
	ListComments(ctx context.Context, rfpId string, track models.CommentTrack) ([]models.Comment, error)
	AppendComment(ctx context.Context, rfpId string, track models.CommentTrack, comment models.Comment) error
}

// MemoryWorkflowRepository - реализация WorkflowRepository, хранящая
// состояние в памяти процесса. Память является источником истины в
// рамках сессии; снимки уходят в SnapshotStore после каждой мутации.
type MemoryWorkflowRepository struct {
	mu       sync.Mutex
	store    SnapshotStore
	logger   *log.Logger
	requests map[string][]models.ChangeRequest
	comments map[string]map[models.CommentTrack][]models.Comment
	hydrated map[string]bool
}

// NewMemoryWorkflowRepository создаёт новый экземпляр MemoryWorkflowRepository.
// store может быть nil, тогда состояние живёт только в памяти.
func NewMemoryWorkflowRepository(store SnapshotStore, logger *log.Logger) *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{
		store:    store,
		logger:   logger,
		requests: make(map[string][]models.ChangeRequest),
		comments: make(map[string]map[models.CommentTrack][]models.Comment),
		hydrated: make(map[string]bool),
	}
}

// hydrate подгружает снимок для RFP при первом обращении. Ошибки чтения
// хранилища логируются и не прерывают работу.
func (r *MemoryWorkflowRepository) hydrate(ctx context.Context, rfpId string) {
	if r.hydrated[rfpId] || r.store == nil {
		r.hydrated[rfpId] = true
		return
	}
	r.hydrated[rfpId] = true

	requests, err := r.store.LoadChangeRequests(ctx, rfpId)
	if err != nil {
		r.logger.Printf("failed to load change requests for rfp %s: %v", rfpId, err)
	} else if len(requests) > 0 {
		r.requests[rfpId] = requests
	}

	for _, track := range []models.CommentTrack{models.TechTrack, models.PricingTrack} {
		comments, err := r.store.LoadComments(ctx, rfpId, track)
		if err != nil {
			r.logger.Printf("failed to load %s comments for rfp %s: %v", track, rfpId, err)
			continue
		}
		if len(comments) > 0 {
			if r.comments[rfpId] == nil {
				r.comments[rfpId] = make(map[models.CommentTrack][]models.Comment)
			}
			r.comments[rfpId][track] = comments
		}
	}
}

// persistRequests сохраняет снимок запросов. Сбой записи логируется и проглатывается.
func (r *MemoryWorkflowRepository) persistRequests(ctx context.Context, rfpId string) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveChangeRequests(ctx, rfpId, r.requests[rfpId]); err != nil {
		r.logger.Printf("failed to persist change requests for rfp %s: %v", rfpId, err)
	}
}

// persistComments сохраняет снимок комментариев. Сбой записи логируется и проглатывается.
func (r *MemoryWorkflowRepository) persistComments(ctx context.Context, rfpId string, track models.CommentTrack) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveComments(ctx, rfpId, track, r.comments[rfpId][track]); err != nil {
		r.logger.Printf("failed to persist %s comments for rfp %s: %v", track, rfpId, err)
	}
}

// ListChangeRequests возвращает запросы на изменения в порядке создания.
func (r *MemoryWorkflowRepository) ListChangeRequests(ctx context.Context, rfpId string) ([]models.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrate(ctx, rfpId)

	requests := make([]models.ChangeRequest, len(r.requests[rfpId]))
	copy(requests, r.requests[rfpId])
	return requests, nil
}

// AppendChangeRequest добавляет запрос в конец списка для RFP.
func (r *MemoryWorkflowRepository) AppendChangeRequest(ctx context.Context, rfpId string, request models.ChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrate(ctx, rfpId)

	r.requests[rfpId] = append(r.requests[rfpId], request)
	r.persistRequests(ctx, rfpId)
	return nil
}

// GetChangeRequest возвращает запрос по его ID.
func (r *MemoryWorkflowRepository) GetChangeRequest(ctx context.Context, rfpId, requestId string) (*models.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrate(ctx, rfpId)

	for _, request := range r.requests[rfpId] {
		if request.ID == requestId {
			found := request
			return &found, nil
		}
	}
	return nil, ErrChangeRequestNotFound
}

// SetChangeRequestStatus меняет статус одного запроса.
func (r *MemoryWorkflowRepository) SetChangeRequestStatus(ctx context.Context, rfpId, requestId string, status models.ChangeRequestStatus) (*models.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrate(ctx, rfpId)

	requests := r.requests[rfpId]
	for i := range requests {
		if requests[i].ID == requestId {
			requests[i].Status = status
			r.persistRequests(ctx, rfpId)
			updated := requests[i]
			return &updated, nil
		}
	}
	return nil, ErrChangeRequestNotFound
}

// ApproveRevisedBy переводит все запросы роли со статусом revised в approved
// и возвращает число одобренных запросов.
func (r *MemoryWorkflowRepository) ApproveRevisedBy(ctx context.Context, rfpId string, role models.UserRole) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrate(ctx, rfpId)

	requests := r.requests[rfpId]
	approved := 0
	for i := range requests {
		if requests[i].Status == models.RevisedRequest && requests[i].RequestedBy == role {
			requests[i].Status = models.ApprovedRequest
			approved++
		}
	}
	if approved > 0 {
		r.persistRequests(ctx, rfpId)
	}
	return approved, nil
}

// ListComments возвращает комментарии одной из команд в порядке создания.
func (r *MemoryWorkflowRepository) ListComments(ctx context.Context, rfpId string, track models.CommentTrack) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrate(ctx, rfpId)

	comments := make([]models.Comment, len(r.comments[rfpId][track]))
	copy(comments, r.comments[rfpId][track])
	return comments, nil
}

// AppendComment добавляет комментарий в конец списка команды.
func (r *MemoryWorkflowRepository) AppendComment(ctx context.Context, rfpId string, track models.CommentTrack, comment models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrate(ctx, rfpId)

	if r.comments[rfpId] == nil {
		r.comments[rfpId] = make(map[models.CommentTrack][]models.Comment)
	}
	r.comments[rfpId][track] = append(r.comments[rfpId][track], comment)
	r.persistComments(ctx, rfpId, track)
	return nil
}
