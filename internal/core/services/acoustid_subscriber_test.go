package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/db"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/infrastructure/storage"
	"gorm.io/gorm"
)

type fakeFingerprinter struct {
	fp       domain.Fingerprint
	err      error
	lastData string
}

func (f *fakeFingerprinter) Fingerprint(ctx context.Context, filePath string) (domain.Fingerprint, error) {
	data, _ := os.ReadFile(filePath)
	f.lastData = string(data)
	return f.fp, f.err
}

type fakeLookup struct {
	enabled bool
	match   *domain.AcoustIDMatch
	err     error
	calls   int
}

func (f *fakeLookup) Enabled() bool { return f.enabled }

func (f *fakeLookup) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.AcoustIDMatch, error) {
	f.calls++
	return f.match, f.err
}

type acoustidFixture struct {
	sub      *AcoustIDSubscriber
	fp       *fakeFingerprinter
	lookup   *fakeLookup
	events   *EventDispatcher
	database *gorm.DB
	media    *domain.Media
}

func newAcoustIDFixture(t *testing.T) *acoustidFixture {
	t.Helper()
	ctx := context.Background()
	database := newTestDB(t)
	log := logger.NewNop()
	disk, err := storage.NewLocalDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := disk.Put(ctx, "uploads/1track.mp3", strings.NewReader("audio bytes")); err != nil {
		t.Fatal(err)
	}

	mediaRepo := db.NewMediaRepository(database, log)
	media := &domain.Media{Title: "track", Filename: "uploads/1track.mp3"}
	if err := mediaRepo.Create(ctx, media); err != nil {
		t.Fatal(err)
	}

	f := &acoustidFixture{
		fp:       &fakeFingerprinter{fp: domain.Fingerprint{Duration: 239, Value: "AQAD"}},
		lookup:   &fakeLookup{enabled: true},
		events:   NewEventDispatcher(log),
		database: database,
		media:    media,
	}
	f.sub = NewAcoustIDSubscriber(AcoustIDSubscriberConfig{
		Fingerprinter: f.fp,
		Lookup:        f.lookup,
		Disk:          disk,
		Media:         mediaRepo,
		Artists:       db.NewArtistRepository(database, log),
		Albums:        db.NewAlbumRepository(database, log),
		Events:        f.events,
		Logger:        log,
	})
	f.sub.Register(f.events)
	return f
}

func (f *acoustidFixture) dispatch(t *testing.T) error {
	t.Helper()
	return f.events.Dispatch(context.Background(), domain.EventUploadUpdated,
		domain.UploadUpdatedPayload{Upload: &domain.Upload{}, Media: f.media})
}

func TestAcoustIDSubscriberAppliesMatch(t *testing.T) {
	f := newAcoustIDFixture(t)
	f.lookup.match = &domain.AcoustIDMatch{
		RecordingID: "rec-1",
		Title:       "Around the World",
		Artists:     []string{"Daft Punk"},
		Album:       "Homework",
	}

	var albums []*domain.Album
	f.events.Subscribe(domain.EventAlbumCreated, 0, func(ctx context.Context, e domain.Event) error {
		albums = append(albums, e.Payload.(domain.AlbumCreatedPayload).Album)
		return nil
	})

	if err := f.dispatch(t); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.fp.lastData != "audio bytes" {
		t.Errorf("fingerprinter saw %q", f.fp.lastData)
	}

	var media domain.Media
	f.database.Preload("Artists").Preload("Albums").First(&media, f.media.ID)
	if media.Title != "Around the World" || media.Duration != 239 {
		t.Errorf("unexpected media %+v", media)
	}
	if len(media.Artists) != 1 || media.Artists[0].Name != "Daft Punk" {
		t.Errorf("unexpected artists %+v", media.Artists)
	}
	if len(media.Albums) != 1 || media.Albums[0].Title != "Homework" {
		t.Fatalf("unexpected albums %+v", media.Albums)
	}
	if media.Albums[0].ArtistID == nil || *media.Albums[0].ArtistID != media.Artists[0].ID {
		t.Errorf("album not linked to artist: %+v", media.Albums[0])
	}
	if len(albums) != 1 {
		t.Fatalf("expected one album created event, got %d", len(albums))
	}

	// a second match for the same album must not announce it again
	if err := f.dispatch(t); err != nil {
		t.Fatal(err)
	}
	if len(albums) != 1 {
		t.Errorf("album created event fired twice")
	}
}

func TestAcoustIDSubscriberSkips(t *testing.T) {
	t.Run("without api key", func(t *testing.T) {
		f := newAcoustIDFixture(t)
		f.lookup.enabled = false
		if err := f.dispatch(t); err != nil {
			t.Fatal(err)
		}
		if f.lookup.calls != 0 {
			t.Error("lookup must not run without an api key")
		}
	})

	t.Run("no match keeps title", func(t *testing.T) {
		f := newAcoustIDFixture(t)
		if err := f.dispatch(t); err != nil {
			t.Fatal(err)
		}
		var media domain.Media
		f.database.First(&media, f.media.ID)
		if media.Title != "track" || media.Duration != 239 {
			t.Errorf("unexpected media %+v", media)
		}
	})

	t.Run("fingerprint failure surfaces", func(t *testing.T) {
		f := newAcoustIDFixture(t)
		f.fp.err = errors.New("fpcalc missing")
		if err := f.dispatch(t); err == nil {
			t.Fatal("expected an error")
		}
		if f.lookup.calls != 0 {
			t.Error("lookup must not run without a fingerprint")
		}
	})
}
