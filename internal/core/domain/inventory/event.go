package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedMessage marks a queue message that can never be applied.
var ErrMalformedMessage = errors.New("inventory: malformed message")

// Event announces a stock change for a product. It is handed to the broker and then forgotten.
type Event struct {
	ID            string    `json:"-"`
	ProductID     string    `json:"productId"`
	QuantityDelta int       `json:"quantity"`
	EmittedAt     time.Time `json:"-"`
}

// NewEvent stamps a fresh identity and emission time on a stock change.
func NewEvent(productID string, delta int) Event {
	return Event{
		ID:            uuid.NewString(),
		ProductID:     productID,
		QuantityDelta: delta,
		EmittedAt:     time.Now().UTC(),
	}
}

// Message is the wire body on the inventory queue.
type Message struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (e Event) Message() Message {
	return Message{ProductID: e.ProductID, Quantity: e.QuantityDelta}
}

// ParseMessage decodes a queue body. Undecodable or incomplete bodies wrap ErrMalformedMessage.
func ParseMessage(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.ProductID == "" {
		return Message{}, fmt.Errorf("%w: productId is required", ErrMalformedMessage)
	}
	return m, nil
}
