package db

import (
	"context"
	"errors"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type uploadRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadRepository(db *gorm.DB, log *logger.Logger) ports.UploadRepository {
	return &uploadRepository{db: db, log: log}
}

func (r *uploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	if err := r.db.WithContext(ctx).Create(upload).Error; err != nil {
		r.log.Errorw("upload_repo_create_failed", "filename", upload.Filename, "error", err)
		return err
	}
	r.log.Infow("upload_repo_create_ok", "id", upload.ID, "filename", upload.Filename)
	return nil
}

func (r *uploadRepository) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	var upload domain.Upload
	if err := r.db.WithContext(ctx).Preload("Media").First(&upload, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("upload_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, lastLog string) error {
	updates := map[string]any{"status": status, "last_log": lastLog}
	if err := r.db.WithContext(ctx).Model(&domain.Upload{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		r.log.Errorw("upload_repo_update_status_failed", "id", id, "status", status, "error", err)
		return err
	}
	r.log.Infow("upload_repo_update_status_ok", "id", id, "status", status)
	return nil
}

func (r *uploadRepository) SetMedia(ctx context.Context, id string, mediaID uint) error {
	if err := r.db.WithContext(ctx).Model(&domain.Upload{}).Where("id = ?", id).Update("media_id", mediaID).Error; err != nil {
		r.log.Errorw("upload_repo_set_media_failed", "id", id, "media", mediaID, "error", err)
		return err
	}
	return nil
}
