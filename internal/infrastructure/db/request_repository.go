package db

import (
	"context"
	"time"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type requestRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepository(db *gorm.DB, log *logger.Logger) ports.RequestRepository {
	return &requestRepository{db: db, log: log}
}

// Create inserts the request and links the requesting user in one transaction.
func (r *requestRepository) Create(ctx context.Context, request *domain.Request, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Users", "Media").Create(request).Error; err != nil {
			return err
		}
		if userID == 0 {
			return nil
		}
		return tx.Model(request).Association("Users").Append(&domain.User{ID: userID})
	})
	if err != nil {
		r.log.Errorw("request_repo_create_failed", "media", request.MediaID, "error", err)
		return err
	}
	r.log.Infow("request_repo_create_ok", "id", request.ID, "media", request.MediaID)
	return nil
}

// GetQueue returns unplayed requests, oldest first.
func (r *requestRepository) GetQueue(ctx context.Context, limit int) ([]domain.Request, error) {
	var requests []domain.Request
	q := r.db.WithContext(ctx).Preload("Media").Where("played_at IS NULL").Order("requested_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&requests).Error; err != nil {
		r.log.Errorw("request_repo_queue_failed", "error", err)
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) HasPendingForMedia(ctx context.Context, mediaID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Request{}).
		Where("media_id = ? AND played_at IS NULL", mediaID).
		Count(&count).Error
	if err != nil {
		r.log.Errorw("request_repo_pending_failed", "media", mediaID, "error", err)
		return false, err
	}
	return count > 0, nil
}

// MarkPlayed reports false when no unplayed request has the given id.
func (r *requestRepository) MarkPlayed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Request{}).
		Where("id = ? AND played_at IS NULL", id).
		Update("played_at", time.Now())
	if res.Error != nil {
		r.log.Errorw("request_repo_mark_played_failed", "id", id, "error", res.Error)
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.log.Infow("request_repo_mark_played_ok", "id", id)
	return true, nil
}
