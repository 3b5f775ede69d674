package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/db"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/infrastructure/storage"
)

type uploadFixture struct {
	service *UploadService
	queue   *UploadQueue
	tasks   *TaskService
	events  *EventDispatcher
	disk    *storage.LocalDisk
}

func newUploadFixture(t *testing.T, buffer int) *uploadFixture {
	t.Helper()
	database := newTestDB(t)
	disk, err := storage.NewLocalDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	log := logger.NewNop()

	f := &uploadFixture{
		queue:  NewUploadQueue(1, buffer, log),
		tasks:  NewTaskService(),
		events: NewEventDispatcher(log),
		disk:   disk,
	}
	f.service = NewUploadService(UploadServiceConfig{
		Disk:    disk,
		Uploads: db.NewUploadRepository(database, log),
		Media:   db.NewMediaRepository(database, log),
		Tasks:   f.tasks,
		Events:  f.events,
		Queue:   f.queue,
		Logger:  log,
	})
	f.service.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f
}

func (f *uploadFixture) nextJob(t *testing.T) UploadJob {
	t.Helper()
	select {
	case job := <-f.queue.jobs:
		return job
	default:
		t.Fatal("expected a queued job")
	}
	return UploadJob{}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and queues", func(t *testing.T) {
		f := newUploadFixture(t, 4)
		var added *domain.Upload
		f.events.Subscribe(domain.EventUploadAdded, 0, func(ctx context.Context, e domain.Event) error {
			added = e.Payload.(domain.UploadAddedPayload).Upload
			return nil
		})

		upload, task, err := f.service.Upload(ctx, "My_Song.mp3", strings.NewReader("audio"), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if upload.Filename != "uploads/1700000000My_Song.mp3" {
			t.Errorf("unexpected stored name %q", upload.Filename)
		}
		if upload.Status != domain.UploadStatusQueued || upload.UserID != 7 {
			t.Errorf("unexpected upload %+v", upload)
		}
		if ok, _ := f.disk.Exists(ctx, upload.Filename); !ok {
			t.Error("expected file on disk")
		}
		if added == nil || added.ID != upload.ID {
			t.Error("expected upload added event")
		}
		if job := f.nextJob(t); job.UploadID != upload.ID || job.TaskID != task.ID {
			t.Errorf("unexpected job %+v", job)
		}
	})

	t.Run("rejects missing name", func(t *testing.T) {
		f := newUploadFixture(t, 4)
		if _, _, err := f.service.Upload(ctx, "", strings.NewReader("x"), 1); !errors.Is(err, ErrUploadInvalidInput) {
			t.Fatalf("expected ErrUploadInvalidInput, got %v", err)
		}
	})

	t.Run("full queue fails the upload", func(t *testing.T) {
		f := newUploadFixture(t, 0)
		if _, _, err := f.service.Upload(ctx, "a.mp3", strings.NewReader("x"), 1); !errors.Is(err, ErrUploadQueueFull) {
			t.Fatalf("expected ErrUploadQueueFull, got %v", err)
		}
	})
}

func TestProcessUpload(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture(t, 4)

	var updated domain.UploadUpdatedPayload
	f.events.Subscribe(domain.EventUploadUpdated, 0, func(ctx context.Context, e domain.Event) error {
		updated = e.Payload.(domain.UploadUpdatedPayload)
		return errors.New("enrichment offline")
	})

	upload, task, err := f.service.Upload(ctx, "My_Song.mp3", strings.NewReader("audio"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.service.Process(ctx, f.nextJob(t)); err != nil {
		t.Fatalf("enrichment failures must not fail processing: %v", err)
	}

	got, err := f.service.GetUpload(ctx, upload.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.UploadStatusComplete || got.Media == nil {
		t.Fatalf("unexpected upload %+v", got)
	}
	if got.Media.Title != "My Song" || len(got.Media.Hash) != 64 {
		t.Errorf("unexpected media %+v", got.Media)
	}
	if updated.Media == nil || updated.Media.ID != got.Media.ID {
		t.Error("expected upload updated event with media")
	}

	finished, _ := f.tasks.GetTask(task.ID)
	if finished.Status != domain.TaskStatusCompleted || finished.Progress != 100 {
		t.Errorf("unexpected task %+v", finished)
	}

	// same bytes under another name reuse the media row
	f.service.now = func() time.Time { return time.Unix(1700000001, 0) }
	second, _, err := f.service.Upload(ctx, "copy.mp3", strings.NewReader("audio"), 1)
	if err != nil {
		t.Fatal(err)
	}
	f.service.Process(ctx, f.nextJob(t))
	dup, _ := f.service.GetUpload(ctx, second.ID)
	if dup.MediaID == nil || *dup.MediaID != got.Media.ID {
		t.Errorf("expected duplicate upload to reuse media %d, got %v", got.Media.ID, dup.MediaID)
	}
}

func TestProcessUploadMissingFile(t *testing.T) {
	ctx := context.Background()
	f := newUploadFixture(t, 4)

	upload, task, err := f.service.Upload(ctx, "gone.mp3", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatal(err)
	}
	f.disk.Delete(ctx, upload.Filename)

	if err := f.service.Process(ctx, f.nextJob(t)); err == nil {
		t.Fatal("expected processing to fail")
	}
	got, _ := f.service.GetUpload(ctx, upload.ID)
	if got.Status != domain.UploadStatusFailed || got.LastLog == "" {
		t.Errorf("unexpected upload %+v", got)
	}
	failed, _ := f.tasks.GetTask(task.ID)
	if failed.Status != domain.TaskStatusFailed {
		t.Errorf("unexpected task %+v", failed)
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"uploads/1700000000My_Song.mp3": "My Song",
		"uploads/17000000001999.flac":   "17000000001999.flac",
		"plain.ogg":                     "plain",
	}
	for in, want := range cases {
		if got := titleFromFilename(in); got != want {
			t.Errorf("titleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
