package projector

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/services/frontdesk/internal/clients"
	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
	"github.com/innkeep/innkeep/services/frontdesk/internal/statecache"
)

// ---------- Fakes ----------

type fakeSub struct {
	bus     *fakeBus
	subject string
}

func (s *fakeSub) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.handlers, s.subject)
	return nil
}

type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]func(*events.Message)
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]func(*events.Message))}
}

func (b *fakeBus) Subscribe(subject string, handler func(msg *events.Message)) (events.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return &fakeSub{bus: b, subject: subject}, nil
}

func (b *fakeBus) QueueSubscribe(subject, _ string, handler func(msg *events.Message)) (events.Subscription, error) {
	return b.Subscribe(subject, handler)
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) publish(t *testing.T, subject string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	b.mu.Lock()
	handler := b.handlers[subject]
	b.mu.Unlock()
	if handler != nil {
		handler(&events.Message{Subject: subject, Data: data, Timestamp: time.Now()})
	}
}

type fakePortal struct {
	mu    sync.Mutex
	view  *domain.RequestView
	polls int
}

func (p *fakePortal) GetRequest(_ context.Context, _, _ string) (*domain.RequestView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if p.view == nil {
		return nil, nil
	}
	copied := *p.view
	return &copied, nil
}

func (p *fakePortal) ListRequests(_ context.Context, _ string, _ clients.RequestListOptions) ([]domain.RequestView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view == nil {
		return nil, nil
	}
	return []domain.RequestView{*p.view}, nil
}

func (p *fakePortal) setStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Status = status
}

func (p *fakePortal) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// ---------- Helpers ----------

func staticToken() (string, error) { return "test-token", nil }

func startProjector(t *testing.T, bus *fakeBus, portal *fakePortal) (*Projector, *statecache.Cache) {
	t.Helper()
	cache := statecache.New()
	p := New(bus, portal, cache, staticToken, Options{
		PollInterval:   5 * time.Millisecond,
		SafetyInterval: time.Hour,
		WatchTTL:       time.Second,
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(p.Stop)
	return p, cache
}

// ---------- Tests ----------

func TestPollingStopsWhenRequestTurnsTerminal(t *testing.T) {
	portal := &fakePortal{view: &domain.RequestView{ID: "r1", Status: "in_progress"}}
	p, cache := startProjector(t, newFakeBus(), portal)

	p.Watch("r1")
	time.Sleep(40 * time.Millisecond)
	if portal.pollCount() == 0 {
		t.Fatal("watcher should be polling a non-terminal request")
	}

	portal.setStatus("completed")
	time.Sleep(40 * time.Millisecond)

	settled := portal.pollCount()
	time.Sleep(40 * time.Millisecond)
	if portal.pollCount() != settled {
		t.Error("polling must stop after the request turns terminal")
	}
	if p.Watching("r1") {
		t.Error("watcher should be gone after terminal status")
	}

	var view domain.RequestView
	if err := cache.Get("request:r1", &view); err != nil {
		t.Fatalf("request not cached: %v", err)
	}
	if view.Status != "completed" {
		t.Errorf("cached status = %q", view.Status)
	}
}

func TestAtMostOneWatcherPerRequest(t *testing.T) {
	portal := &fakePortal{view: &domain.RequestView{ID: "r1", Status: "pending"}}
	p, _ := startProjector(t, newFakeBus(), portal)

	for i := 0; i < 5; i++ {
		p.Watch("r1")
	}

	p.mu.Lock()
	n := len(p.watchers)
	p.mu.Unlock()
	if n != 1 {
		t.Errorf("watchers = %d, want 1", n)
	}
}

func TestCreatedEventCachesAndWatches(t *testing.T) {
	bus := newFakeBus()
	portal := &fakePortal{view: &domain.RequestView{ID: "r1", Status: "pending"}}
	p, cache := startProjector(t, bus, portal)

	bus.publish(t, events.RequestCreated, events.RequestCreatedEvent{
		RequestID:      "r1",
		TrackingNumber: "SR-1A2B3C4D",
		RoomNumber:     "204",
		Summary:        "Plumbing: leaking tap",
		Priority:       "urgent",
		CreatedAt:      time.Now(),
	})

	var view domain.RequestView
	if err := cache.Get("request:r1", &view); err != nil {
		t.Fatalf("request not cached: %v", err)
	}
	if view.Status != "pending" || view.Summary != "Plumbing: leaking tap" {
		t.Errorf("unexpected view: %+v", view)
	}
	if !p.Watching("r1") {
		t.Error("created event should start the fallback watch")
	}
}

func TestStatusChangedEventUnwatchesTerminal(t *testing.T) {
	bus := newFakeBus()
	portal := &fakePortal{view: &domain.RequestView{ID: "r1", Status: "pending"}}
	p, cache := startProjector(t, bus, portal)

	bus.publish(t, events.RequestCreated, events.RequestCreatedEvent{RequestID: "r1", CreatedAt: time.Now()})
	bus.publish(t, events.RequestStatusChanged, events.RequestStatusChangedEvent{
		RequestID: "r1", OldStatus: "pending", NewStatus: "cancelled", ChangedAt: time.Now(),
	})

	if p.Watching("r1") {
		t.Error("terminal event should drop the watcher")
	}

	var view domain.RequestView
	cache.Get("request:r1", &view)
	if view.Status != "cancelled" {
		t.Errorf("cached status = %q", view.Status)
	}
}

func TestCheckoutCompletedEventProjectsRoomState(t *testing.T) {
	bus := newFakeBus()
	portal := &fakePortal{}
	_, cache := startProjector(t, bus, portal)

	cache.Put("reservation:res-1", domain.ReservationView{ID: "res-1", RoomID: "room-1", Status: "checked_in"})
	cache.Put("folio:res-1", map[string]int64{"balance_cents": 0})

	bus.publish(t, events.CheckoutCompleted, events.CheckoutCompletedEvent{
		TenantID: "tenant-1", ReservationID: "res-1", FolioID: "folio-1", RoomID: "room-1", CompletedAt: time.Now(),
	})

	var reservation domain.ReservationView
	cache.Get("reservation:res-1", &reservation)
	if reservation.Status != "checked_out" {
		t.Errorf("reservation status = %q", reservation.Status)
	}

	var room domain.RoomView
	cache.Get("room:room-1", &room)
	if room.Status != "needs_cleaning" {
		t.Errorf("room status = %q", room.Status)
	}

	var stale map[string]int64
	if err := cache.Get("folio:res-1", &stale); err == nil {
		t.Error("folio entry should be invalidated on checkout")
	}
}

func TestStopCancelsWatchers(t *testing.T) {
	portal := &fakePortal{view: &domain.RequestView{ID: "r1", Status: "pending"}}
	p, _ := startProjector(t, newFakeBus(), portal)

	p.Watch("r1")
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	settled := portal.pollCount()
	time.Sleep(40 * time.Millisecond)
	if portal.pollCount() != settled {
		t.Error("stop must cancel the poll loops")
	}
}
