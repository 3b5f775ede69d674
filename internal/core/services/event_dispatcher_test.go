package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shoutzor/backend/internal/domain"
)

func TestEventDispatcherPriority(t *testing.T) {
	d := NewEventDispatcher(nil)
	var order []string
	record := func(name string) EventHandler {
		return func(ctx context.Context, e domain.Event) error {
			order = append(order, name)
			return nil
		}
	}

	d.Subscribe(domain.EventUploadAdded, 0, record("default"))
	d.Subscribe(domain.EventUploadAdded, 10, record("high"))
	d.Subscribe(domain.EventUploadAdded, 0, record("default-later"))
	d.Subscribe(domain.EventUploadAdded, -5, record("low"))
	d.Subscribe(domain.EventRequestAdded, 100, record("other-event"))

	if err := d.Dispatch(context.Background(), domain.EventUploadAdded, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"high", "default", "default-later", "low"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestEventDispatcherContinuesAfterFailure(t *testing.T) {
	d := NewEventDispatcher(nil)
	boom := errors.New("boom")
	called := false

	d.Subscribe(domain.EventAlbumCreated, 1, func(ctx context.Context, e domain.Event) error { return boom })
	d.Subscribe(domain.EventAlbumCreated, 0, func(ctx context.Context, e domain.Event) error {
		called = true
		if e.Name != domain.EventAlbumCreated {
			t.Errorf("unexpected event name %q", e.Name)
		}
		return nil
	})

	err := d.Dispatch(context.Background(), domain.EventAlbumCreated, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if !called {
		t.Fatal("second subscriber was not called")
	}
}

func TestEventDispatcherNoSubscribers(t *testing.T) {
	if err := NewEventDispatcher(nil).Dispatch(context.Background(), "nothing", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
