package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/catalog-service/internal/core/ports"
)

const (
	processedKeyPrefix = "inventory:processed:"
	stockKey           = "inventory:stock"
)

// applyOnce records the event id and applies the delta atomically; a replayed id is a no-op.
var applyOnce = redis.NewScript(`
if redis.call('SET', KEYS[1], '1', 'NX', 'PX', ARGV[2]) then
	redis.call('HINCRBY', KEYS[2], ARGV[1], ARGV[3])
	return 1
end
return 0
`)

// InventoryLedgerRedisRepository keeps per-product stock in a Redis hash.
type InventoryLedgerRedisRepository struct {
	r redis.Cmdable
}

func NewInventoryLedgerRedisRepository(r redis.Cmdable) *InventoryLedgerRedisRepository {
	return &InventoryLedgerRedisRepository{r: r}
}

// Apply adds delta to productID's stock unless eventID was seen within dedupeTTL.
func (repo *InventoryLedgerRedisRepository) Apply(ctx context.Context, eventID, productID string, delta int, dedupeTTL time.Duration) (bool, error) {
	if eventID == "" {
		return false, errors.New("inventory ledger: event id is required")
	}
	keys := []string{processedKeyPrefix + eventID, stockKey}
	applied, err := applyOnce.Run(ctx, repo.r, keys, productID, dedupeTTL.Milliseconds(), delta).Int()
	if err != nil {
		return false, fmt.Errorf("inventory ledger: apply %s: %w", eventID, err)
	}
	return applied == 1, nil
}

// Stock returns the accumulated stock for productID, 0 when never touched.
func (repo *InventoryLedgerRedisRepository) Stock(ctx context.Context, productID string) (int64, error) {
	n, err := repo.r.HGet(ctx, stockKey, productID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inventory ledger: stock %s: %w", productID, err)
	}
	return n, nil
}

var _ ports.InventoryLedger = (*InventoryLedgerRedisRepository)(nil)
