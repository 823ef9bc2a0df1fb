// Package rescuehub owns the live request set. Intents run on the caller's
// goroutine against the durable store; after every successful one the hub
// reloads the full set and pushes it to every subscriber. A single goroutine
// (Run) owns the subscriber registry.
package rescuehub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"floodrescue/backend/internal/bus"
	"floodrescue/backend/internal/claim"
	"floodrescue/backend/internal/config"
	"floodrescue/backend/internal/metrics"
	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate = validator.New()

// Options configure a HubService. Zero values are replaced by defaults.
type Options struct {
	Bus            bus.Bus
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	MaxProofImages int
	Now            func() time.Time
}

type HubService struct {
	// ID tags the change notices this hub publishes.
	ID string

	Storage storage.Storage

	RegisterCh   chan Client
	UnregisterCh chan Client

	bus            bus.Bus
	claims         *claim.Coordinator
	metrics        *metrics.Metrics
	logger         *zap.Logger
	maxProofImages int
	now            func() time.Time

	// broadcastCh coalesces pending broadcasts; one signal covers any number
	// of reloads before it is consumed.
	broadcastCh chan struct{}
	done        chan struct{}

	reloadMu    sync.Mutex
	snapMu      sync.RWMutex
	snapshot    models.Snapshot
	subscribers atomic.Int64
}

func NewHubService(s storage.Storage, opts Options) *HubService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Bus == nil {
		opts.Bus = bus.NewLocalBus()
	}
	if opts.MaxProofImages <= 0 {
		opts.MaxProofImages = config.DefaultMaxProofImages
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &HubService{
		ID:             uuid.NewString(),
		Storage:        s,
		RegisterCh:     make(chan Client),
		UnregisterCh:   make(chan Client),
		bus:            opts.Bus,
		claims:         claim.NewCoordinator(s),
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		maxProofImages: opts.MaxProofImages,
		now:            opts.Now,
		broadcastCh:    make(chan struct{}, 1),
		done:           make(chan struct{}),
		snapshot:       models.Snapshot{Requests: []models.Request{}},
	}
}

// Run is the hub loop. It returns when ctx is cancelled, after closing every
// subscriber.
func (h *HubService) Run(ctx context.Context) {
	clients := make(map[string]Client)
	defer func() {
		for id, c := range clients {
			delete(clients, id)
			c.Close()
			h.subscribers.Add(-1)
			h.metrics.SubscriberRemoved()
		}
		close(h.done)
	}()

	changes, err := h.bus.Subscribe(ctx)
	if err != nil {
		h.logger.Error("Change bus unavailable, only local changes will be seen", zap.Error(err))
		changes = nil
	}
	if err := h.reload(ctx); err != nil {
		h.logger.Error("Initial load failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.RegisterCh:
			clients[c.GetClientID()] = c
			h.subscribers.Add(1)
			h.metrics.SubscriberAdded()
			offer(c.GetSendChannel(), h.Snapshot())
			h.logger.Debug("Subscriber registered", zap.String("client_id", c.GetClientID()))

		case c := <-h.UnregisterCh:
			if _, ok := clients[c.GetClientID()]; ok {
				delete(clients, c.GetClientID())
				c.Close()
				h.subscribers.Add(-1)
				h.metrics.SubscriberRemoved()
				h.logger.Debug("Subscriber removed", zap.String("client_id", c.GetClientID()))
			}

		case <-h.broadcastCh:
			snap := h.Snapshot()
			for _, c := range clients {
				offer(c.GetSendChannel(), snap)
			}
			h.metrics.Broadcast()

		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if change.Origin == h.ID {
				continue
			}
			if err := h.reload(ctx); err != nil {
				h.logger.Error("Reload after remote change failed",
					zap.String("request_id", change.RequestID), zap.Error(err))
			}
		}
	}
}

// Subscribe registers c and returns its unsubscribe func. The current
// snapshot is delivered right away.
func (h *HubService) Subscribe(c Client) (unsubscribe func()) {
	select {
	case h.RegisterCh <- c:
	case <-h.done:
		c.Close()
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			select {
			case h.UnregisterCh <- c:
			case <-h.done:
			}
		})
	}
}

// SubscribeFunc calls fn with every snapshot, in order, on a dedicated
// goroutine. Snapshots fn is too slow for are skipped.
func (h *HubService) SubscribeFunc(fn func(models.Snapshot)) (unsubscribe func()) {
	c := &funcClient{id: uuid.NewString(), send: NewMailbox(), fn: fn}
	c.Run()
	return h.Subscribe(c)
}

// Snapshot returns the latest full request set. Callers must not modify it.
func (h *HubService) Snapshot() models.Snapshot {
	h.snapMu.RLock()
	defer h.snapMu.RUnlock()
	return h.snapshot
}

// Subscribers returns the number of registered subscribers.
func (h *HubService) Subscribers() int {
	return int(h.subscribers.Load())
}

// Done is closed once Run has returned.
func (h *HubService) Done() <-chan struct{} {
	return h.done
}

// reload reads the full set from the store and schedules a broadcast.
// Reloads are serialised so a snapshot never replaces a newer one.
func (h *HubService) reload(ctx context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	list, err := h.Storage.ListRequests(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Request{}
	}
	h.snapMu.Lock()
	h.snapshot = models.Snapshot{
		Version:  h.snapshot.Version + 1,
		At:       h.now(),
		Requests: list,
	}
	h.snapMu.Unlock()

	select {
	case h.broadcastCh <- struct{}{}:
	default:
	}
	return nil
}

// changed publishes a change notice and refreshes local subscribers. The
// intent already succeeded; failures here are only logged.
func (h *HubService) changed(ctx context.Context, intent, requestID string) {
	if err := h.bus.Publish(ctx, bus.Change{Origin: h.ID, RequestID: requestID, Intent: intent}); err != nil {
		h.logger.Warn("Failed to publish change notice",
			zap.String("intent", intent), zap.String("request_id", requestID), zap.Error(err))
	}
	// The caller's context may be cancelled right after the intent returns.
	if err := h.reload(context.WithoutCancel(ctx)); err != nil {
		h.logger.Error("Failed to reload after change",
			zap.String("intent", intent), zap.String("request_id", requestID), zap.Error(err))
	}
}
