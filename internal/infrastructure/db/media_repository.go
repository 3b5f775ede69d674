package db

import (
	"context"
	"errors"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type mediaRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepository(db *gorm.DB, log *logger.Logger) ports.MediaRepository {
	return &mediaRepository{db: db, log: log}
}

func (r *mediaRepository) Create(ctx context.Context, media *domain.Media) error {
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		r.log.Errorw("media_repo_create_failed", "filename", media.Filename, "error", err)
		return err
	}
	r.log.Infow("media_repo_create_ok", "id", media.ID, "filename", media.Filename)
	return nil
}

func (r *mediaRepository) GetByID(ctx context.Context, id uint) (*domain.Media, error) {
	var media domain.Media
	if err := r.db.WithContext(ctx).Preload("Artists").Preload("Albums").First(&media, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("media_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &media, nil
}

func (r *mediaRepository) GetByHash(ctx context.Context, hash string) (*domain.Media, error) {
	var media domain.Media
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&media).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("media_repo_get_by_hash_failed", "hash", hash, "error", err)
		return nil, err
	}
	return &media, nil
}

func (r *mediaRepository) Update(ctx context.Context, media *domain.Media) error {
	if err := r.db.WithContext(ctx).Omit("Artists", "Albums").Save(media).Error; err != nil {
		r.log.Errorw("media_repo_update_failed", "id", media.ID, "error", err)
		return err
	}
	r.log.Infow("media_repo_update_ok", "id", media.ID)
	return nil
}

func (r *mediaRepository) AttachArtist(ctx context.Context, media *domain.Media, artist *domain.Artist) error {
	if err := r.db.WithContext(ctx).Model(media).Association("Artists").Append(artist); err != nil {
		r.log.Errorw("media_repo_attach_artist_failed", "id", media.ID, "artist", artist.ID, "error", err)
		return err
	}
	return nil
}

func (r *mediaRepository) AttachAlbum(ctx context.Context, media *domain.Media, album *domain.Album) error {
	if err := r.db.WithContext(ctx).Model(media).Association("Albums").Append(album); err != nil {
		r.log.Errorw("media_repo_attach_album_failed", "id", media.ID, "album", album.ID, "error", err)
		return err
	}
	return nil
}

type artistRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtistRepository(db *gorm.DB, log *logger.Logger) ports.ArtistRepository {
	return &artistRepository{db: db, log: log}
}

func (r *artistRepository) FirstOrCreate(ctx context.Context, name string) (*domain.Artist, bool, error) {
	var artist domain.Artist
	res := r.db.WithContext(ctx).Where(domain.Artist{Name: name}).FirstOrCreate(&artist)
	if res.Error != nil {
		r.log.Errorw("artist_repo_first_or_create_failed", "name", name, "error", res.Error)
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0
	if created {
		r.log.Infow("artist_repo_create_ok", "id", artist.ID, "name", name)
	}
	return &artist, created, nil
}

type albumRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlbumRepository(db *gorm.DB, log *logger.Logger) ports.AlbumRepository {
	return &albumRepository{db: db, log: log}
}

// FirstOrCreate matches on title and artist together. A nil artistID only
// matches albums without an artist.
func (r *albumRepository) FirstOrCreate(ctx context.Context, title string, artistID *uint) (*domain.Album, bool, error) {
	var album domain.Album
	q := r.db.WithContext(ctx).Where("title = ?", title)
	if artistID == nil {
		q = q.Where("artist_id IS NULL")
	} else {
		q = q.Where("artist_id = ?", *artistID)
	}

	err := q.First(&album).Error
	if err == nil {
		return &album, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		r.log.Errorw("album_repo_get_failed", "title", title, "error", err)
		return nil, false, err
	}

	album = domain.Album{Title: title, ArtistID: artistID}
	if err := r.db.WithContext(ctx).Create(&album).Error; err != nil {
		r.log.Errorw("album_repo_create_failed", "title", title, "error", err)
		return nil, false, err
	}
	r.log.Infow("album_repo_create_ok", "id", album.ID, "title", title)
	return &album, true, nil
}
