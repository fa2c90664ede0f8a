package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Anushre2005/swiftbid/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore - реализация SnapshotStore поверх Redis. Снимки
// хранятся как JSON-списки, один ключ на RFP и вид артефакта.
type RedisSnapshotStore struct {
	Client *redis.Client
}

// NewRedisSnapshotStore создаёт новый экземпляр RedisSnapshotStore.
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{Client: client}
}

func changeRequestsKey(rfpId string) string {
	return fmt.Sprintf("rfp:%s:change-requests", rfpId)
}

func commentsKey(rfpId string, track models.CommentTrack) string {
	return fmt.Sprintf("rfp:%s:%s-comments", rfpId, track)
}

// SaveChangeRequests сохраняет снимок списка запросов на изменения.
func (s *RedisSnapshotStore) SaveChangeRequests(ctx context.Context, rfpId string, requests []models.ChangeRequest) error {
	data, err := json.Marshal(requests)
	if err != nil {
		return fmt.Errorf("failed to encode change requests: %w", err)
	}
	return s.Client.Set(ctx, changeRequestsKey(rfpId), data, 0).Err()
}

// LoadChangeRequests читает снимок списка запросов на изменения.
// Отсутствие ключа не является ошибкой.
func (s *RedisSnapshotStore) LoadChangeRequests(ctx context.Context, rfpId string) ([]models.ChangeRequest, error) {
	data, err := s.Client.Get(ctx, changeRequestsKey(rfpId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var requests []models.ChangeRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode change requests: %w", err)
	}
	for i := range requests {
		requests[i].RfpID = rfpId
	}
	return requests, nil
}

// SaveComments сохраняет снимок списка комментариев команды.
func (s *RedisSnapshotStore) SaveComments(ctx context.Context, rfpId string, track models.CommentTrack, comments []models.Comment) error {
	data, err := json.Marshal(comments)
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}
	return s.Client.Set(ctx, commentsKey(rfpId, track), data, 0).Err()
}

// LoadComments читает снимок списка комментариев команды.
func (s *RedisSnapshotStore) LoadComments(ctx context.Context, rfpId string, track models.CommentTrack) ([]models.Comment, error) {
	data, err := s.Client.Get(ctx, commentsKey(rfpId, track)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := json.Unmarshal(data, &comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	return comments, nil
}
