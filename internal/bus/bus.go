// Package bus carries change notices between processes that share the
// durable store. A notice only says "request X changed"; receivers reload the
// store, so a dropped or coalesced notice loses nothing as long as a later
// one arrives.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
)

// Channel is the Redis channel and NATS subject notices travel on.
const Channel = "floodrescue.requests.changed"

// Change is one change notice.
type Change struct {
	// Origin identifies the hub that made the change.
	Origin    string `json:"origin"`
	RequestID string `json:"request_id"`
	// Intent is the intent that caused the change ("claim", "cancel", ...).
	Intent string `json:"intent"`
}

type Bus interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe delivers notices until ctx is cancelled, then closes the channel.
	Subscribe(ctx context.Context) (<-chan Change, error)
	Close() error
}

func encode(c Change) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode change: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}
