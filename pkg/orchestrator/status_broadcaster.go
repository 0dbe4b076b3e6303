package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

// StatusChange is published whenever an entry's processing status is persisted.
type StatusChange struct {
	EntryID   uuid.UUID                 `json:"entryId"`
	Status    entities.ProcessingStatus `json:"status"`
	EntryType entities.EntryType        `json:"entryType"`
	Reason    string                    `json:"reason,omitempty"`
	At        time.Time                 `json:"at"`
}

// StatusBroadcaster fans status changes out to subscribers. Publish never
// blocks; a subscriber whose buffer is full misses the event.
type StatusBroadcaster struct {
	mu            sync.RWMutex
	subscribers   map[uint64]chan StatusChange
	nextID        uint64
	defaultBuffer int
	logger        *slog.Logger
	onDrop        func()
}

func NewStatusBroadcaster(defaultBuffer int, logger *slog.Logger, onDrop func()) *StatusBroadcaster {
	if defaultBuffer <= 0 {
		defaultBuffer = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusBroadcaster{
		subscribers:   make(map[uint64]chan StatusChange),
		defaultBuffer: defaultBuffer,
		logger:        logger,
		onDrop:        onDrop,
	}
}

// Subscribe returns a channel of changes and a cancel func that closes it.
// buffer <= 0 uses the broadcaster default.
func (b *StatusBroadcaster) Subscribe(buffer int) (<-chan StatusChange, func()) {
	if buffer <= 0 {
		buffer = b.defaultBuffer
	}
	ch := make(chan StatusChange, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *StatusBroadcaster) Publish(change StatusChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- change:
		default:
			b.logger.Warn("status subscriber is full, dropping event",
				"subscriber", id, "entry_id", change.EntryID, "status", change.Status)
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}
