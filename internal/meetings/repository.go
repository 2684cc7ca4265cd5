// Package meetings persists finished meeting records and serves them back
// for history, chat context, quizzes, and export.
package meetings

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/redis"
)

// StorageKey is the single Redis key holding the meeting list.
const StorageKey = "meetings"

// Repository stores meeting records newest-first.
type Repository interface {
	// List returns all records, newest first.
	List(ctx context.Context) ([]models.MeetingRecord, error)
	// Get returns one record by id.
	Get(ctx context.Context, id string) (*models.MeetingRecord, error)
	// Save prepends the record; an existing record with the same id is
	// replaced in place.
	Save(ctx context.Context, record models.MeetingRecord) error
	// Delete removes the record with the given id.
	Delete(ctx context.Context, id string) error
}

// RedisRepository keeps the whole meeting list as one JSON document under
// StorageKey. Every operation reloads the full list; the history is small
// and the single document keeps writes atomic.
type RedisRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRepository creates a Redis-backed meeting repository.
func NewRedisRepository(client *redis.Client, logger *zap.Logger) *RedisRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRepository{client: client, logger: logger}
}

func (r *RedisRepository) load(ctx context.Context) ([]models.MeetingRecord, error) {
	raw, err := r.client.Get(ctx, StorageKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return []models.MeetingRecord{}, nil
		}
		return nil, fmt.Errorf("load meetings: %w", err)
	}
	var records []models.MeetingRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// A corrupt document would otherwise wedge every operation;
		// start over and keep the bad payload in the logs.
		r.logger.Error("stored meeting list is corrupt, resetting", zap.Error(err))
		return []models.MeetingRecord{}, nil
	}
	return records, nil
}

func (r *RedisRepository) persist(ctx context.Context, records []models.MeetingRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal meetings: %w", err)
	}
	if err := r.client.Set(ctx, StorageKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("persist meetings: %w", err)
	}
	return nil
}

func (r *RedisRepository) List(ctx context.Context) ([]models.MeetingRecord, error) {
	return r.load(ctx)
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*models.MeetingRecord, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, errs.Inputf("meeting %q not found", id)
}

func (r *RedisRepository) Save(ctx context.Context, record models.MeetingRecord) error {
	records, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = record
			return r.persist(ctx, records)
		}
	}
	records = append([]models.MeetingRecord{record}, records...)
	return r.persist(ctx, records)
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	records, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			records = append(records[:i], records[i+1:]...)
			return r.persist(ctx, records)
		}
	}
	return errs.Inputf("meeting %q not found", id)
}
