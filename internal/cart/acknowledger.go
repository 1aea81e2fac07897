package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Ack describes an item landing in a cart.
type Ack struct {
	OwnerID  uuid.UUID
	Name     string
	Quantity int
}

// Acknowledger is told about every successful add. Implementations must not block.
type Acknowledger interface {
	Acknowledge(ctx context.Context, ack Ack)
}

type noopAcknowledger struct{}

func (noopAcknowledger) Acknowledge(context.Context, Ack) {}

const defaultAckBuffer = 64

// LogAcknowledger drains acknowledgements on a background goroutine and
// writes one log line each. When the buffer is full the ack is dropped.
type LogAcknowledger struct {
	logg    *logger.Logger
	ch      chan Ack
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped func(Ack)
}

// NewLogAcknowledger starts the drain goroutine; call Close to stop it.
func NewLogAcknowledger(logg *logger.Logger, buffer int) *LogAcknowledger {
	if buffer <= 0 {
		buffer = defaultAckBuffer
	}
	a := &LogAcknowledger{
		logg: logg,
		ch:   make(chan Ack, buffer),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *LogAcknowledger) Acknowledge(_ context.Context, ack Ack) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- ack:
	default:
		if a.dropped != nil {
			a.dropped(ack)
		}
	}
}

// Close stops accepting acks and waits for the buffer to drain.
func (a *LogAcknowledger) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	<-a.done
}

func (a *LogAcknowledger) run() {
	defer close(a.done)
	for ack := range a.ch {
		if a.logg == nil {
			continue
		}
		ctx := a.logg.WithFields(context.Background(), map[string]any{
			"owner_id": ack.OwnerID.String(),
			"item":     ack.Name,
			"quantity": ack.Quantity,
		})
		a.logg.Info(ctx, "item added to cart")
	}
}
