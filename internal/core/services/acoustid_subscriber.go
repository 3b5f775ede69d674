package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
)

type AcoustIDSubscriberConfig struct {
	Fingerprinter ports.Fingerprinter
	Lookup        ports.AcoustIDLookup
	Disk          ports.Disk
	Media         ports.MediaRepository
	Artists       ports.ArtistRepository
	Albums        ports.AlbumRepository
	Events        *EventDispatcher
	Logger        *logger.Logger
}

// AcoustIDSubscriber identifies freshly processed uploads and fills in the
// title, artists and album of their media.
type AcoustIDSubscriber struct {
	fp      ports.Fingerprinter
	lookup  ports.AcoustIDLookup
	disk    ports.Disk
	media   ports.MediaRepository
	artists ports.ArtistRepository
	albums  ports.AlbumRepository
	events  *EventDispatcher
	logger  *logger.Logger
}

func NewAcoustIDSubscriber(cfg AcoustIDSubscriberConfig) *AcoustIDSubscriber {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &AcoustIDSubscriber{
		fp:      cfg.Fingerprinter,
		lookup:  cfg.Lookup,
		disk:    cfg.Disk,
		media:   cfg.Media,
		artists: cfg.Artists,
		albums:  cfg.Albums,
		events:  cfg.Events,
		logger:  cfg.Logger,
	}
}

func (s *AcoustIDSubscriber) Register(d *EventDispatcher) {
	d.Subscribe(domain.EventUploadUpdated, 0, s.OnUploadUpdated)
}

func (s *AcoustIDSubscriber) OnUploadUpdated(ctx context.Context, event domain.Event) error {
	payload, ok := event.Payload.(domain.UploadUpdatedPayload)
	if !ok || payload.Media == nil {
		return nil
	}
	if !s.lookup.Enabled() {
		s.logger.Debugw("acoustid_skipped", "reason", "no api key", "media_id", payload.Media.ID)
		return nil
	}
	return s.Identify(ctx, payload.Media)
}

// Identify fingerprints the media file and applies the best AcoustID match.
func (s *AcoustIDSubscriber) Identify(ctx context.Context, media *domain.Media) error {
	local, cleanup, err := s.localCopy(ctx, media.Filename)
	if err != nil {
		return err
	}
	defer cleanup()

	fp, err := s.fp.Fingerprint(ctx, local)
	if err != nil {
		return err
	}
	media.Duration = fp.Duration

	match, err := s.lookup.Lookup(ctx, fp)
	if err != nil {
		return err
	}
	if match == nil {
		s.logger.Infow("acoustid_no_match", "media_id", media.ID)
		return s.media.Update(ctx, media)
	}

	media.Title = match.Title
	if err := s.media.Update(ctx, media); err != nil {
		return err
	}

	var firstArtist *uint
	for _, name := range match.Artists {
		artist, _, err := s.artists.FirstOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := s.media.AttachArtist(ctx, media, artist); err != nil {
			return err
		}
		if firstArtist == nil {
			id := artist.ID
			firstArtist = &id
		}
	}

	if match.Album != "" {
		album, created, err := s.albums.FirstOrCreate(ctx, match.Album, firstArtist)
		if err != nil {
			return err
		}
		if err := s.media.AttachAlbum(ctx, media, album); err != nil {
			return err
		}
		if created {
			s.events.Dispatch(ctx, domain.EventAlbumCreated, domain.AlbumCreatedPayload{Album: album, Media: media})
		}
	}

	s.logger.Infow("acoustid_match_applied", "media_id", media.ID, "recording", match.RecordingID, "score", match.Score)
	return nil
}

// localCopy makes the stored file available to fpcalc, which only reads from
// the local filesystem.
func (s *AcoustIDSubscriber) localCopy(ctx context.Context, p string) (string, func(), error) {
	rc, err := s.disk.Open(ctx, p)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "shoutzor-*"+path.Ext(p))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	_, err = io.Copy(tmp, rc)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to copy %s: %w", p, err)
	}
	return tmp.Name(), cleanup, nil
}
