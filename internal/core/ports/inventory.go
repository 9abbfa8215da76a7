package ports

import (
	"context"
	"time"

	"github.com/avatarctic/catalog-service/internal/core/domain/inventory"
)

// InventoryPublisher delivers inventory events to the broker at least once.
// A nil error from Publish means the broker accepted the message.
type InventoryPublisher interface {
	Publish(ctx context.Context, event inventory.Event) error
	// Close stops accepting publishes, waits for in-flight ones (bounded by ctx)
	// and releases the channel and connection.
	Close(ctx context.Context) error
}

// InventoryLedger records stock deltas, applying each event id at most once.
type InventoryLedger interface {
	// Apply returns applied=false when eventID was already recorded.
	Apply(ctx context.Context, eventID, productID string, delta int, dedupeTTL time.Duration) (bool, error)
	Stock(ctx context.Context, productID string) (int64, error)
}

// InventoryLedgerService handles messages consumed from the inventory queue.
type InventoryLedgerService interface {
	HandleMessage(ctx context.Context, messageID string, body []byte) error
}
