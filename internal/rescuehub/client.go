package rescuehub

import (
	"sync"

	"floodrescue/backend/internal/config"
	"floodrescue/backend/internal/models"
)

// Client is one snapshot subscriber (a WebSocket, the Telegram relay, ...).
type Client interface {
	// GetClientID returns an id unique among the hub's subscribers.
	GetClientID() string

	// GetSendChannel returns the client's mailbox. It must have a capacity of
	// one: the hub replaces an unread snapshot with the newer one instead of
	// waiting for the client.
	GetSendChannel() chan models.Snapshot

	// Run starts the client's pumps.
	Run()
	// Close is called by the hub once the client is removed. It closes the
	// mailbox, which stops the client's pumps.
	Close()
}

// NewMailbox returns a mailbox suitable for GetSendChannel.
func NewMailbox() chan models.Snapshot {
	return make(chan models.Snapshot, config.SubscriberMailbox)
}

// offer puts s in the mailbox without blocking, dropping a stale snapshot
// the client has not read yet. Only the hub goroutine sends to a mailbox.
func offer(mailbox chan models.Snapshot, s models.Snapshot) {
	for {
		select {
		case mailbox <- s:
			return
		default:
		}
		select {
		case <-mailbox:
		default:
		}
	}
}

// funcClient delivers snapshots to a callback on its own goroutine.
type funcClient struct {
	id   string
	send chan models.Snapshot
	fn   func(models.Snapshot)
	once sync.Once
}

func (c *funcClient) GetClientID() string                  { return c.id }
func (c *funcClient) GetSendChannel() chan models.Snapshot { return c.send }

func (c *funcClient) Run() {
	go func() {
		for s := range c.send {
			c.fn(s)
		}
	}()
}

func (c *funcClient) Close() {
	c.once.Do(func() { close(c.send) })
}
