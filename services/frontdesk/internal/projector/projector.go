// Package projector keeps the console's state cache in step with the rest of
// the system. The event feed is the primary signal; a per-request poll runs
// as fallback while a request is non-terminal, and a slower tenant-wide poll
// catches anything both of those missed.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/innkeep/innkeep/pkg/events"
	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/frontdesk/internal/clients"
	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
	"github.com/innkeep/innkeep/services/frontdesk/internal/statecache"
)

// TokenSource supplies the staff credential used for upstream reads.
type TokenSource func() (string, error)

type Options struct {
	// PollInterval drives the per-request fallback poll.
	PollInterval time.Duration
	// SafetyInterval drives the tenant-wide list poll. Must be strictly
	// longer than PollInterval; New enforces that.
	SafetyInterval time.Duration
	// WatchTTL bounds how long a single request is polled regardless of
	// status, so an abandoned view cannot poll forever.
	WatchTTL time.Duration
}

type Projector struct {
	bus    events.Subscriber
	portal clients.PortalAPI
	cache  *statecache.Cache
	token  TokenSource
	opts   Options

	mu       sync.Mutex
	watchers map[string]context.CancelFunc
	subs     []events.Subscription

	cancel context.CancelFunc
	group  *errgroup.Group
	ctx    context.Context
}

func New(bus events.Subscriber, portal clients.PortalAPI, cache *statecache.Cache, token TokenSource, opts Options) *Projector {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.SafetyInterval <= opts.PollInterval {
		opts.SafetyInterval = 6 * opts.PollInterval
	}
	if opts.WatchTTL <= 0 {
		opts.WatchTTL = 30 * time.Minute
	}

	return &Projector{
		bus:      bus,
		portal:   portal,
		cache:    cache,
		token:    token,
		opts:     opts,
		watchers: make(map[string]context.CancelFunc),
	}
}

func requestKey(id string) string { return "request:" + id }

// Start wires the subscriptions and launches the safety-net poll. It returns
// once everything is running; Stop tears it all down.
func (p *Projector) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.group, p.ctx = errgroup.WithContext(ctx)

	subjects := map[string]func(*events.Message){
		events.RequestCreated:       p.onRequestCreated,
		events.RequestStatusChanged: p.onStatusChanged,
		events.CheckoutCompleted:    p.onCheckoutCompleted,
	}
	for subject, handler := range subjects {
		sub, err := p.bus.Subscribe(subject, handler)
		if err != nil {
			p.Stop()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		p.subs = append(p.subs, sub)
	}

	p.group.Go(func() error {
		p.safetyPollLoop(p.ctx)
		return nil
	})
	return nil
}

// Stop unsubscribes the feed and cancels every poll loop.
func (p *Projector) Stop() {
	p.mu.Lock()
	for _, sub := range p.subs {
		_ = sub.Unsubscribe()
	}
	p.subs = nil
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	if p.group != nil {
		_ = p.group.Wait()
	}
}

func (p *Projector) onRequestCreated(msg *events.Message) {
	var ev events.RequestCreatedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Bad request created event", "error", err)
		return
	}

	view := domain.RequestView{
		ID:             ev.RequestID,
		TrackingNumber: ev.TrackingNumber,
		RoomNumber:     ev.RoomNumber,
		Summary:        ev.Summary,
		Priority:       ev.Priority,
		Status:         "pending",
		UpdatedAt:      ev.CreatedAt,
	}
	if err := p.cache.Put(requestKey(ev.RequestID), view); err != nil {
		logger.Error("Failed to cache request", "error", err, "request_id", ev.RequestID)
	}
	p.Watch(ev.RequestID)
}

func (p *Projector) onStatusChanged(msg *events.Message) {
	var ev events.RequestStatusChangedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Bad status changed event", "error", err)
		return
	}

	var view domain.RequestView
	if err := p.cache.Get(requestKey(ev.RequestID), &view); err != nil {
		view = domain.RequestView{ID: ev.RequestID}
	}
	view.Status = ev.NewStatus
	view.UpdatedAt = ev.ChangedAt
	view.CompletedAt = ev.CompletedAt
	if ev.Notes != "" {
		view.Summary = ev.Notes
	}
	if err := p.cache.Put(requestKey(ev.RequestID), view); err != nil {
		logger.Error("Failed to cache request", "error", err, "request_id", ev.RequestID)
	}

	if view.Terminal() {
		p.Unwatch(ev.RequestID)
	}
}

func (p *Projector) onCheckoutCompleted(msg *events.Message) {
	var ev events.CheckoutCompletedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Bad checkout completed event", "error", err)
		return
	}

	p.cache.Invalidate("folio:" + ev.ReservationID)

	var reservation domain.ReservationView
	if err := p.cache.Get("reservation:"+ev.ReservationID, &reservation); err == nil {
		reservation.Status = "checked_out"
		_ = p.cache.Put("reservation:"+ev.ReservationID, reservation)
	}
	var room domain.RoomView
	if err := p.cache.Get("room:"+ev.RoomID, &room); err != nil {
		room = domain.RoomView{ID: ev.RoomID}
	}
	room.Status = "needs_cleaning"
	_ = p.cache.Put("room:"+ev.RoomID, room)
}

// Watch starts the fallback poll for one request. A request already being
// watched is left alone: at most one poll loop exists per key.
func (p *Projector) Watch(requestID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.watchers[requestID]; exists {
		return
	}
	if p.ctx == nil || p.ctx.Err() != nil {
		return
	}

	wctx, cancel := context.WithTimeout(p.ctx, p.opts.WatchTTL)
	p.watchers[requestID] = cancel
	p.group.Go(func() error {
		defer p.Unwatch(requestID)
		p.pollRequest(wctx, requestID)
		return nil
	})
}

// Unwatch cancels the poll loop for a request, if any.
func (p *Projector) Unwatch(requestID string) {
	p.mu.Lock()
	cancel, exists := p.watchers[requestID]
	delete(p.watchers, requestID)
	p.mu.Unlock()

	if exists {
		cancel()
	}
}

// Watching reports whether a fallback poll is active for the request.
func (p *Projector) Watching(requestID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, exists := p.watchers[requestID]
	return exists
}

func (p *Projector) pollRequest(ctx context.Context, requestID string) {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		token, err := p.token()
		if err != nil {
			logger.Error("Failed to get poll token", "error", err)
			continue
		}
		view, err := p.portal.GetRequest(ctx, token, requestID)
		if err != nil {
			logger.Error("Request poll failed", "error", err, "request_id", requestID)
			continue
		}
		if view == nil {
			continue
		}

		if err := p.cache.Put(requestKey(requestID), *view); err != nil {
			logger.Error("Failed to cache request", "error", err, "request_id", requestID)
		}
		if view.Terminal() {
			return
		}
	}
}

func (p *Projector) safetyPollLoop(ctx context.Context) {
	ticker := time.NewTicker(p.opts.SafetyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		token, err := p.token()
		if err != nil {
			logger.Error("Failed to get poll token", "error", err)
			continue
		}
		views, err := p.portal.ListRequests(ctx, token, clients.RequestListOptions{Limit: 100})
		if err != nil {
			logger.Error("Safety poll failed", "error", err)
			continue
		}

		for _, view := range views {
			if err := p.cache.Put(requestKey(view.ID), view); err != nil {
				logger.Error("Failed to cache request", "error", err, "request_id", view.ID)
			}
		}
	}
}
