package db

import (
	"context"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type oauthClientRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOAuthClientRepository(db *gorm.DB, log *logger.Logger) ports.OAuthClientRepository {
	return &oauthClientRepository{db: db, log: log}
}

func (r *oauthClientRepository) Create(ctx context.Context, client *domain.OAuthClient) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		r.log.Errorw("oauth_client_repo_create_failed", "name", client.Name, "error", err)
		return err
	}
	r.log.Infow("oauth_client_repo_create_ok", "id", client.ID, "name", client.Name)
	return nil
}

func (r *oauthClientRepository) GetAll(ctx context.Context) ([]domain.OAuthClient, error) {
	var clients []domain.OAuthClient
	if err := r.db.WithContext(ctx).Order("id").Find(&clients).Error; err != nil {
		r.log.Errorw("oauth_client_repo_list_failed", "error", err)
		return nil, err
	}
	return clients, nil
}
