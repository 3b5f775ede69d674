package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
)

type EventHandler func(ctx context.Context, event domain.Event) error

type subscription struct {
	priority int
	seq      int
	handler  EventHandler
}

// EventDispatcher delivers events synchronously. Higher priority subscribers
// run first; equal priorities run in subscription order. A failing subscriber
// does not stop the others.
type EventDispatcher struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	seq    int
	logger *logger.Logger
}

func NewEventDispatcher(log *logger.Logger) *EventDispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventDispatcher{
		subs:   make(map[string][]subscription),
		logger: log,
	}
}

func (d *EventDispatcher) Subscribe(name string, priority int, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	subs := append(d.subs[name], subscription{priority: priority, seq: d.seq, handler: handler})
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority > subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})
	d.subs[name] = subs
}

func (d *EventDispatcher) Dispatch(ctx context.Context, name string, payload any) error {
	d.mu.RLock()
	subs := append([]subscription(nil), d.subs[name]...)
	d.mu.RUnlock()

	event := domain.Event{Name: name, Payload: payload}
	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			d.logger.Warnw("event_subscriber_failed", "event", name, "priority", sub.priority, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
