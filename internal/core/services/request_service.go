package services

import (
	"context"

	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
)

type RequestService struct {
	requests ports.RequestRepository
	media    ports.MediaRepository
	events   *EventDispatcher
	logger   *logger.Logger
}

func NewRequestService(requests ports.RequestRepository, media ports.MediaRepository, events *EventDispatcher, log *logger.Logger) *RequestService {
	if log == nil {
		log = logger.NewNop()
	}
	return &RequestService{requests: requests, media: media, events: events, logger: log}
}

// Request queues media for playback. Media that is already waiting in the
// queue cannot be requested again until it has played.
func (s *RequestService) Request(ctx context.Context, mediaID, userID uint) (*domain.Request, error) {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if media == nil {
		return nil, ErrMediaNotFound
	}

	pending, err := s.requests.HasPendingForMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrRequestDuplicate
	}

	request := &domain.Request{MediaID: mediaID}
	if err := s.requests.Create(ctx, request, userID); err != nil {
		return nil, err
	}
	request.Media = media

	s.events.Dispatch(ctx, domain.EventRequestAdded, domain.RequestAddedPayload{Request: request})
	s.logger.Infow("request_added", "id", request.ID, "media_id", mediaID, "user_id", userID)
	return request, nil
}

func (s *RequestService) Queue(ctx context.Context, limit int) ([]domain.Request, error) {
	return s.requests.GetQueue(ctx, limit)
}

// Next pops the oldest unplayed request and marks it played.
func (s *RequestService) Next(ctx context.Context) (*domain.Request, error) {
	queue, err := s.requests.GetQueue(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, ErrRequestQueueEmpty
	}
	next := queue[0]
	if err := s.MarkPlayed(ctx, next.ID); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *RequestService) MarkPlayed(ctx context.Context, id string) error {
	found, err := s.requests.MarkPlayed(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrRequestNotFound
	}
	return nil
}
