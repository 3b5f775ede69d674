package db

import (
	"context"
	"errors"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type userRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepository(db *gorm.DB, log *logger.Logger) ports.UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.log.Errorw("user_repo_create_failed", "username", user.Username, "error", err)
		return err
	}
	r.log.Infow("user_repo_create_ok", "id", user.ID, "username", user.Username)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("user_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("user_repo_get_by_username_failed", "username", username, "error", err)
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) AttachRole(ctx context.Context, user *domain.User, role *domain.Role) error {
	if err := r.db.WithContext(ctx).Model(user).Association("Roles").Append(role); err != nil {
		r.log.Errorw("user_repo_attach_role_failed", "id", user.ID, "role", role.Name, "error", err)
		return err
	}
	r.log.Infow("user_repo_attach_role_ok", "id", user.ID, "role", role.Name)
	return nil
}

type roleRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleRepository(db *gorm.DB, log *logger.Logger) ports.RoleRepository {
	return &roleRepository{db: db, log: log}
}

// FirstOrCreate returns the role called name, creating it when missing. The
// bool reports whether a row was inserted.
func (r *roleRepository) FirstOrCreate(ctx context.Context, name, description string) (*domain.Role, bool, error) {
	role := domain.Role{Name: name, Description: description}
	res := r.db.WithContext(ctx).Where(domain.Role{Name: name}).Attrs(domain.Role{Description: description}).FirstOrCreate(&role)
	if res.Error != nil {
		r.log.Errorw("role_repo_first_or_create_failed", "name", name, "error", res.Error)
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0
	if created {
		r.log.Infow("role_repo_create_ok", "id", role.ID, "name", name)
	}
	return &role, created, nil
}
