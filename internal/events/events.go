// Package events publishes cart and wishlist activity after the store has
// accepted a mutation. Publishing never fails the mutation itself.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	WishlistToggled = "wishlist_toggled"
	WishlistRemoved = "wishlist_removed"
	CartItemAdded   = "cart_item_added"
	CartItemUpdated = "cart_item_updated"
	CartItemRemoved = "cart_item_removed"
)

type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id,omitempty"`
	GameID   models.ID `json:"game_id"`
	LineID   models.ID `json:"line_id,omitempty"`
	Quantity int       `json:"quantity,omitempty"`
	Added    *bool     `json:"added,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// Emitter sends events to one topic. A nil *Emitter drops everything.
type Emitter struct {
	Publisher Publisher
	Topic     string
	Log       *slog.Logger
}

func NewEmitter(p Publisher, topic string, log *slog.Logger) *Emitter {
	return &Emitter{Publisher: p, Topic: topic, Log: log}
}

// Emit publishes ev keyed by user so one visitor's events stay ordered.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil || e.Publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	key := ev.UserID
	if key == "" {
		key = ev.GameID.String()
	}
	if err := e.Publisher.PublishEvent(ctx, e.Topic, key, ev); err != nil {
		logging.FromContext(ctx, e.Log).Warn("event_publish_failed", "type", ev.Type, "error", err)
	}
}

// Nop satisfies Publisher when no brokers are configured.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, string, any) error { return nil }
