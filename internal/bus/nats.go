package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBus sends notices over core NATS. Notices are not persisted.
type NATSBus struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// DialNATS connects to url with reconnects enabled.
func DialNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

func NewNATSBus(nc *nats.Conn, logger *zap.Logger) *NATSBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSBus{nc: nc, logger: logger}
}

func (b *NATSBus) Publish(_ context.Context, c Change) error {
	data, err := encode(c)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(Channel, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (b *NATSBus) Subscribe(ctx context.Context) (<-chan Change, error) {
	msgs := make(chan *nats.Msg, localBuffer)
	sub, err := b.nc.ChanSubscribe(Channel, msgs)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}

	out := make(chan Change, localBuffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				c, err := decode(m.Data)
				if err != nil {
					b.logger.Warn("Dropping malformed change notice", zap.Error(err))
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *NATSBus) Close() error {
	return b.nc.Drain()
}
