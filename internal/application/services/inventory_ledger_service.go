package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/catalog-service/internal/core/domain/inventory"
	"github.com/avatarctic/catalog-service/internal/core/ports"
)

// InventoryLedgerService applies inventory events to the ledger, once per event id.
type InventoryLedgerService struct {
	ledger    ports.InventoryLedger
	dedupeTTL time.Duration
	logger    *logrus.Logger
}

func NewInventoryLedgerService(ledger ports.InventoryLedger, dedupeTTL time.Duration, logger *logrus.Logger) *InventoryLedgerService {
	if logger == nil {
		logger = logrus.New()
	}
	return &InventoryLedgerService{ledger: ledger, dedupeTTL: dedupeTTL, logger: logger}
}

// HandleMessage applies one delivery. Redeliveries of an applied id succeed without effect.
func (s *InventoryLedgerService) HandleMessage(ctx context.Context, messageID string, body []byte) error {
	if messageID == "" {
		return fmt.Errorf("%w: missing message id", inventory.ErrMalformedMessage)
	}
	msg, err := inventory.ParseMessage(body)
	if err != nil {
		return err
	}

	applied, err := s.ledger.Apply(ctx, messageID, msg.ProductID, msg.Quantity, s.dedupeTTL)
	if err != nil {
		return err
	}
	fields := logrus.Fields{"event_id": messageID, "product_id": msg.ProductID, "quantity": msg.Quantity}
	if !applied {
		s.logger.WithFields(fields).Info("duplicate inventory event ignored")
		return nil
	}
	s.logger.WithFields(fields).Info("inventory event applied")
	return nil
}

var _ ports.InventoryLedgerService = (*InventoryLedgerService)(nil)
