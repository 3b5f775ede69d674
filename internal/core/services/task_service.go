package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shoutzor/backend/internal/domain"
)

// TaskService tracks background jobs in memory so clients can poll progress.
type TaskService struct {
	tasks map[string]*domain.Task
	mu    sync.RWMutex
}

func NewTaskService() *TaskService {
	return &TaskService{
		tasks: make(map[string]*domain.Task),
	}
}

func (s *TaskService) CreateTask(taskType, resourceID string) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	task := &domain.Task{
		ID:         uuid.New().String(),
		Type:       taskType,
		ResourceID: resourceID,
		Status:     domain.TaskStatusPending,
		Message:    "Task initialized",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.tasks[task.ID] = task

	taskCopy := *task
	return &taskCopy
}

func (s *TaskService) UpdateTask(id string, status domain.TaskStatus, progress int, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return ErrTaskNotFound
	}

	task.Status = status
	task.Progress = progress
	task.Message = msg
	task.UpdatedAt = time.Now()
	return nil
}

func (s *TaskService) CompleteTask(id string, msg string) error {
	return s.UpdateTask(id, domain.TaskStatusCompleted, 100, msg)
}

func (s *TaskService) FailTask(id string, errStr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return ErrTaskNotFound
	}

	task.Status = domain.TaskStatusFailed
	task.Error = errStr
	task.Message = "Task failed"
	task.UpdatedAt = time.Now()
	return nil
}

func (s *TaskService) GetTask(id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, ErrTaskNotFound
	}

	// copy so callers never race the workers
	taskCopy := *task
	return &taskCopy, nil
}

// Prune drops finished tasks last updated before the cutoff.
func (s *TaskService) Prune(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, task := range s.tasks {
		finished := task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed
		if finished && task.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}
