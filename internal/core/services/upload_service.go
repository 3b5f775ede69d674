package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
)

const TaskTypeUploadProcess = "upload.process"

type UploadServiceConfig struct {
	Disk    ports.Disk
	Uploads ports.UploadRepository
	Media   ports.MediaRepository
	Tasks   *TaskService
	Events  *EventDispatcher
	Queue   *UploadQueue
	Logger  *logger.Logger
}

// UploadService stores incoming files and turns them into media in the
// background.
type UploadService struct {
	disk    ports.Disk
	uploads ports.UploadRepository
	media   ports.MediaRepository
	tasks   *TaskService
	events  *EventDispatcher
	queue   *UploadQueue
	logger  *logger.Logger
	now     func() time.Time
}

func NewUploadService(cfg UploadServiceConfig) *UploadService {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &UploadService{
		disk:    cfg.Disk,
		uploads: cfg.Uploads,
		media:   cfg.Media,
		tasks:   cfg.Tasks,
		events:  cfg.Events,
		queue:   cfg.Queue,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Upload stores the file as uploads/<unix><name>, records it and queues it
// for processing.
func (s *UploadService) Upload(ctx context.Context, filename string, r io.Reader, userID uint) (*domain.Upload, *domain.Task, error) {
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return nil, nil, fmt.Errorf("%w: missing file name", ErrUploadInvalidInput)
	}

	storedAs := fmt.Sprintf("uploads/%d%s", s.now().Unix(), name)
	size, err := s.disk.Put(ctx, storedAs, r)
	if err != nil {
		s.logger.Errorw("upload_store_failed", "filename", storedAs, "error", err)
		return nil, nil, fmt.Errorf("failed to store upload: %w", err)
	}

	upload := &domain.Upload{
		Filename: storedAs,
		UserID:   userID,
		Status:   domain.UploadStatusQueued,
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		s.disk.Delete(ctx, storedAs)
		return nil, nil, err
	}
	s.logger.Infow("upload_stored", "id", upload.ID, "filename", storedAs, "size", size)

	s.events.Dispatch(ctx, domain.EventUploadAdded, domain.UploadAddedPayload{Upload: upload})

	task := s.tasks.CreateTask(TaskTypeUploadProcess, upload.ID)
	if err := s.queue.Enqueue(UploadJob{UploadID: upload.ID, TaskID: task.ID}); err != nil {
		s.uploads.UpdateStatus(ctx, upload.ID, domain.UploadStatusFailed, err.Error())
		s.tasks.FailTask(task.ID, err.Error())
		return nil, nil, err
	}
	return upload, task, nil
}

func (s *UploadService) GetUpload(ctx context.Context, id string) (*domain.Upload, error) {
	upload, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, ErrUploadNotFound
	}
	return upload, nil
}

// Process is the queue worker for a single upload. Failures are recorded on
// both the upload row and its task.
func (s *UploadService) Process(ctx context.Context, job UploadJob) error {
	s.tasks.UpdateTask(job.TaskID, domain.TaskStatusRunning, 10, "Processing upload")

	media, err := s.process(ctx, job)
	if err != nil {
		s.logger.Errorw("upload_process_failed", "id", job.UploadID, "error", err)
		if !errors.Is(err, ErrUploadNotFound) {
			s.uploads.UpdateStatus(ctx, job.UploadID, domain.UploadStatusFailed, err.Error())
		}
		s.tasks.FailTask(job.TaskID, err.Error())
		return err
	}

	s.tasks.CompleteTask(job.TaskID, fmt.Sprintf("Media %d ready", media.ID))
	s.logger.Infow("upload_process_ok", "id", job.UploadID, "media_id", media.ID)
	return nil
}

func (s *UploadService) process(ctx context.Context, job UploadJob) (*domain.Media, error) {
	upload, err := s.GetUpload(ctx, job.UploadID)
	if err != nil {
		return nil, err
	}
	if err := s.uploads.UpdateStatus(ctx, upload.ID, domain.UploadStatusProcessing, ""); err != nil {
		return nil, err
	}

	hash, err := s.hash(ctx, upload.Filename)
	if err != nil {
		return nil, err
	}
	s.tasks.UpdateTask(job.TaskID, domain.TaskStatusRunning, 40, "File hashed")

	media, err := s.media.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if media == nil {
		media = &domain.Media{
			Title:    titleFromFilename(upload.Filename),
			Filename: upload.Filename,
			Hash:     hash,
		}
		if err := s.media.Create(ctx, media); err != nil {
			return nil, err
		}
	} else {
		s.logger.Infow("upload_duplicate_media", "id", upload.ID, "media_id", media.ID)
	}

	if err := s.uploads.SetMedia(ctx, upload.ID, media.ID); err != nil {
		return nil, err
	}
	if err := s.uploads.UpdateStatus(ctx, upload.ID, domain.UploadStatusComplete, ""); err != nil {
		return nil, err
	}
	upload.Status = domain.UploadStatusComplete
	upload.MediaID = &media.ID
	s.tasks.UpdateTask(job.TaskID, domain.TaskStatusRunning, 70, "Enriching metadata")

	// metadata enrichment is best effort
	if err := s.events.Dispatch(ctx, domain.EventUploadUpdated, domain.UploadUpdatedPayload{Upload: upload, Media: media}); err != nil {
		s.logger.Warnw("upload_enrichment_failed", "id", upload.ID, "error", err)
	}
	return media, nil
}

func (s *UploadService) hash(ctx context.Context, p string) (string, error) {
	rc, err := s.disk.Open(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// titleFromFilename turns "uploads/1700000000My_Song.mp3" into "My Song".
func titleFromFilename(p string) string {
	name := path.Base(p)
	name = strings.TrimLeft(name, "0123456789")
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return path.Base(p)
	}
	return name
}
