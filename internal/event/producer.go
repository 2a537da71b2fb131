package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/internal/view"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for shop domain events.
var (
	TopicCartUpdated      = pkgkafka.Topic("cart", "updated")
	TopicCartCleared      = pkgkafka.Topic("cart", "cleared")
	TopicFavoritesUpdated = pkgkafka.Topic("favorites", "updated")
)

// Aggregate type constants.
const (
	AggregateTypeCart      = "cart"
	AggregateTypeFavorites = "favorites"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

const flushTimeout = 5 * time.Second

var eventsDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_events_dropped_total",
		Help: "Shop events discarded because the publish queue was full",
	},
	[]string{"topic"},
)

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Namespace string         `json:"namespace"`
	Op        string         `json:"op"`
	Items     []CartItemData `json:"items"`
	ItemCount int            `json:"item_count"`
	Subtotal  int64          `json:"subtotal"`
	Shipping  int64          `json:"shipping"`
	Total     int64          `json:"total"`
	Currency  string         `json:"currency"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID domain.ProductID `json:"product_id"`
	Name      string           `json:"name"`
	Price     int64            `json:"price"`
	Quantity  int              `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	Namespace string `json:"namespace"`
}

// FavoritesUpdatedData is the payload for a favorites.updated event.
type FavoritesUpdatedData struct {
	Namespace  string             `json:"namespace"`
	Op         string             `json:"op"`
	ProductID  domain.ProductID   `json:"product_id,omitempty"`
	ProductIDs []domain.ProductID `json:"product_ids"`
	Count      int                `json:"count"`
}

// Publisher is the subset of pkg/kafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type outgoing struct {
	ctx   context.Context
	topic string
	event *pkgkafka.Event
}

// Producer turns committed store changes into Kafka events. Events are
// built synchronously so they reflect the committed state, then published
// by Run in the background. Publishing never blocks a mutation: when the
// queue is full the event is dropped and logged.
type Producer struct {
	kafka     Publisher
	lookup    view.ProductLookup
	policy    view.ShippingPolicy
	currency  string
	namespace string
	logger    *slog.Logger
	queue     chan outgoing
}

// Config holds the event producer settings.
type Config struct {
	Namespace string
	Currency  string
	Policy    view.ShippingPolicy
	QueueSize int
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, lookup view.ProductLookup, cfg Config, logger *slog.Logger) *Producer {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	return &Producer{
		kafka:     kafka,
		lookup:    lookup,
		policy:    cfg.Policy,
		currency:  cfg.Currency,
		namespace: cfg.Namespace,
		logger:    logger,
		queue:     make(chan outgoing, size),
	}
}

// HandleChange is a store.Listener.
func (p *Producer) HandleChange(ctx context.Context, change store.Change) {
	topic, aggregateType, data, ok := p.payload(change)
	if !ok {
		return
	}

	evt, err := pkgkafka.NewEvent(topic, p.namespace, aggregateType, SourceStorefront, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to create shop event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}
	evt.WithMetadata("op", string(change.Op))
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	select {
	case p.queue <- outgoing{ctx: context.WithoutCancel(ctx), topic: topic, event: evt}:
	default:
		eventsDropped.WithLabelValues(topic).Inc()
		p.logger.WarnContext(ctx, "event queue full, dropping shop event",
			slog.String("topic", topic),
			slog.String("event_id", evt.EventID),
		)
	}
}

func (p *Producer) payload(change store.Change) (topic, aggregateType string, data any, ok bool) {
	switch {
	case change.Op == store.OpClearCart:
		return TopicCartCleared, AggregateTypeCart, CartClearedData{Namespace: p.namespace}, true
	case change.Collection == store.CollectionCart:
		cart := view.BuildCart(change.State.Cart, p.lookup, p.policy)
		items := make([]CartItemData, len(cart.Lines))
		for i, l := range cart.Lines {
			items[i] = CartItemData{ProductID: l.ID, Name: l.Name, Price: l.Price, Quantity: l.Quantity}
		}
		return TopicCartUpdated, AggregateTypeCart, CartUpdatedData{
			Namespace: p.namespace,
			Op:        string(change.Op),
			Items:     items,
			ItemCount: cart.ItemCount,
			Subtotal:  cart.Subtotal,
			Shipping:  cart.Shipping,
			Total:     cart.Total,
			Currency:  p.currency,
		}, true
	case change.Collection == store.CollectionFavorites:
		ids := change.State.Favorites.IDs()
		if ids == nil {
			ids = []domain.ProductID{}
		}
		return TopicFavoritesUpdated, AggregateTypeFavorites, FavoritesUpdatedData{
			Namespace:  p.namespace,
			Op:         string(change.Op),
			ProductID:  change.ProductID,
			ProductIDs: ids,
			Count:      len(ids),
		}, true
	default:
		return "", "", nil, false
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// left in the queue within a bounded time.
func (p *Producer) Run(ctx context.Context) {
	for {
		select {
		case msg := <-p.queue:
			p.publish(msg.ctx, msg)
		case <-ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *Producer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.publish(ctx, msg)
		default:
			return
		}
	}
}

func (p *Producer) publish(ctx context.Context, msg outgoing) {
	if err := p.kafka.Publish(ctx, msg.topic, msg.event); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish shop event",
			slog.String("topic", msg.topic),
			slog.String("event_id", msg.event.EventID),
			slog.String("error", err.Error()),
		)
		return
	}
	p.logger.DebugContext(ctx, "published shop event",
		slog.String("topic", msg.topic),
		slog.String("event_id", msg.event.EventID),
	)
}
