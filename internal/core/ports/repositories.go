package ports

import (
	"context"

	"github.com/shoutzor/backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	AttachRole(ctx context.Context, user *domain.User, role *domain.Role) error
}

type RoleRepository interface {
	FirstOrCreate(ctx context.Context, name, description string) (*domain.Role, bool, error)
}

type OAuthClientRepository interface {
	Create(ctx context.Context, client *domain.OAuthClient) error
	GetAll(ctx context.Context) ([]domain.OAuthClient, error)
}

type ArtistRepository interface {
	FirstOrCreate(ctx context.Context, name string) (*domain.Artist, bool, error)
}

type AlbumRepository interface {
	FirstOrCreate(ctx context.Context, title string, artistID *uint) (*domain.Album, bool, error)
}

type MediaRepository interface {
	Create(ctx context.Context, media *domain.Media) error
	GetByID(ctx context.Context, id uint) (*domain.Media, error)
	GetByHash(ctx context.Context, hash string) (*domain.Media, error)
	Update(ctx context.Context, media *domain.Media) error
	AttachArtist(ctx context.Context, media *domain.Media, artist *domain.Artist) error
	AttachAlbum(ctx context.Context, media *domain.Media, album *domain.Album) error
}

type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) error
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
	UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, lastLog string) error
	SetMedia(ctx context.Context, id string, mediaID uint) error
}

type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request, userID uint) error
	GetQueue(ctx context.Context, limit int) ([]domain.Request, error)
	HasPendingForMedia(ctx context.Context, mediaID uint) (bool, error)
	MarkPlayed(ctx context.Context, id string) (bool, error)
}
