package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/yungbote/recommend-backend/internal/realtime"
)

// MemoryBus delivers messages in-process. It is used when redis is not
// configured and in tests. Published messages are kept for inspection.
type MemoryBus struct {
	mu        sync.Mutex
	published []realtime.Message
	handlers  []func(realtime.Message)
}

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Publish(ctx context.Context, msg realtime.Message) error {
	// Round-trip through JSON so subscribers see what a redis subscriber would.
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var decoded realtime.Message
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}

	b.mu.Lock()
	b.published = append(b.published, decoded)
	handlers := append([]func(realtime.Message){}, b.handlers...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(decoded)
	}
	return nil
}

func (b *MemoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return nil
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) Close() error { return nil }

// Published returns a copy of every message published so far.
func (b *MemoryBus) Published() []realtime.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Message(nil), b.published...)
}

// OnChannel returns the published messages addressed to channel.
func (b *MemoryBus) OnChannel(channel string) []realtime.Message {
	var out []realtime.Message
	for _, m := range b.Published() {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}
