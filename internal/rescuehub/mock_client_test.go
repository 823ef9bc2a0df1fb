package rescuehub_test

import (
	"sync"

	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/rescuehub"
)

type MockClient struct {
	id     string
	send   chan models.Snapshot
	once   sync.Once
	closed chan struct{}
}

func newMockClient(id string) *MockClient {
	return &MockClient{id: id, send: rescuehub.NewMailbox(), closed: make(chan struct{})}
}

func (c *MockClient) GetClientID() string                  { return c.id }
func (c *MockClient) GetSendChannel() chan models.Snapshot { return c.send }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.once.Do(func() {
		close(c.send)
		close(c.closed)
	})
}
