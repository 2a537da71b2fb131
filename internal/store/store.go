// Package store owns the shop state of a single storefront session: the
// favorites set and the cart. Every operation is serialized; once hydrated,
// every mutation is written through to the KV backend before it becomes
// visible.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
)

// Persisted key names.
const (
	FavoritesKey = "favItems"
	CartKey      = "cartItems"
)

// Collection identifies which part of the state a change touched.
type Collection string

const (
	CollectionFavorites Collection = "favorites"
	CollectionCart      Collection = "cart"
)

// Op names the mutation that produced a change.
type Op string

const (
	OpToggleFavorite        Op = "toggle_favorite"
	OpToggleCart            Op = "toggle_cart"
	OpAddToCart             Op = "add_to_cart"
	OpSetQuantity           Op = "set_quantity"
	OpRemoveFromCart        Op = "remove_from_cart"
	OpAddAllFavoritesToCart Op = "add_all_favorites_to_cart"
	OpClearCart             Op = "clear_cart"
	OpHydrate               Op = "hydrate"
)

// Snapshot is a read-only copy of the state.
type Snapshot struct {
	Favorites domain.Favorites
	Cart      domain.Cart
}

// Change describes a committed mutation. ProductID is zero for operations
// that do not target a single product.
type Change struct {
	Op         Op
	Collection Collection
	ProductID  domain.ProductID
	State      Snapshot
}

// Listener is notified after each committed change, in commit order.
// Listeners may read the store but must not mutate it.
type Listener func(ctx context.Context, change Change)

// Store is the shop state container. Create it with New and call Hydrate
// once before serving traffic.
type Store struct {
	kv     storage.KV
	logger *slog.Logger

	mu        sync.Mutex
	hydrated  bool
	favorites domain.Favorites
	cart      domain.Cart
	seq       uint64

	// Changes are delivered in seq order; delivered is the next ticket due.
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64

	listeners map[int]Listener
	nextID    int
	lmu       sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty, unhydrated store over kv.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		logger:    slog.Default(),
		listeners: make(map[int]Listener),
	}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads both collections from the backend. It runs once; later
// calls are no-ops. Malformed persisted data loads as empty. A backend read
// error leaves the store unhydrated so nothing is written over saved state.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return nil
	}

	favIDs, err := s.load(ctx, FavoritesKey)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	cartIDs, err := s.load(ctx, CartKey)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.favorites = domain.NewFavorites(favIDs)
	s.cart = domain.CartFromIDs(cartIDs)
	s.hydrated = true

	s.logger.InfoContext(ctx, "shop state hydrated",
		slog.Int("favorites", s.favorites.Len()),
		slog.Int("cart_items", s.cart.ItemCount()),
	)
	s.commitLocked(ctx, Change{Op: OpHydrate})
	return nil
}

func (s *Store) load(ctx context.Context, key string) ([]domain.ProductID, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	ids, ok := parseIDs(raw)
	if !ok {
		s.logger.WarnContext(ctx, "discarding malformed persisted state", slog.String("key", key))
	}
	return ids, nil
}

// Hydrated reports whether Hydrate has completed.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Favorites: s.favorites.Clone(), Cart: s.cart.Clone()}
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

// ToggleFavorite removes id from favorites when present and appends it
// otherwise. It reports whether id is a favorite afterwards.
func (s *Store) ToggleFavorite(ctx context.Context, id domain.ProductID) (bool, error) {
	var favorited bool
	err := s.mutateFavorites(ctx, OpToggleFavorite, id, func(f *domain.Favorites) {
		favorited = f.Toggle(id)
	})
	return favorited, err
}

// ToggleCart removes every unit of id when present and inserts one unit
// otherwise. It reports whether id is in the cart afterwards.
func (s *Store) ToggleCart(ctx context.Context, id domain.ProductID) (bool, error) {
	var inCart bool
	err := s.mutateCart(ctx, OpToggleCart, id, func(c *domain.Cart) {
		if c.Remove(id) {
			return
		}
		c.Add(id)
		inCart = true
	})
	return inCart, err
}

// AddToCart adds one unit of id and returns the new quantity.
func (s *Store) AddToCart(ctx context.Context, id domain.ProductID) (int, error) {
	var qty int
	err := s.mutateCart(ctx, OpAddToCart, id, func(c *domain.Cart) {
		qty = c.Add(id)
	})
	return qty, err
}

// SetQuantity sets the quantity of id; quantity <= 0 removes it.
func (s *Store) SetQuantity(ctx context.Context, id domain.ProductID, quantity int) error {
	return s.mutateCart(ctx, OpSetQuantity, id, func(c *domain.Cart) {
		c.Set(id, quantity)
	})
}

// RemoveFromCart removes every unit of id.
func (s *Store) RemoveFromCart(ctx context.Context, id domain.ProductID) error {
	return s.mutateCart(ctx, OpRemoveFromCart, id, func(c *domain.Cart) {
		c.Remove(id)
	})
}

// AddAllFavoritesToCart inserts one unit of each favorite not yet in the
// cart. Favorites already in the cart keep their quantity. It returns the
// number of products added.
func (s *Store) AddAllFavoritesToCart(ctx context.Context) (int, error) {
	var added int
	err := s.mutate(ctx, OpAddAllFavoritesToCart, 0, CollectionCart, func(f *domain.Favorites, c *domain.Cart) {
		for _, id := range f.IDs() {
			if !c.Contains(id) {
				c.Add(id)
				added++
			}
		}
	})
	return added, err
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutateCart(ctx, OpClearCart, 0, func(c *domain.Cart) {
		c.Clear()
	})
}

func (s *Store) mutateFavorites(ctx context.Context, op Op, id domain.ProductID, fn func(*domain.Favorites)) error {
	return s.mutate(ctx, op, id, CollectionFavorites, func(f *domain.Favorites, _ *domain.Cart) { fn(f) })
}

func (s *Store) mutateCart(ctx context.Context, op Op, id domain.ProductID, fn func(*domain.Cart)) error {
	return s.mutate(ctx, op, id, CollectionCart, func(_ *domain.Favorites, c *domain.Cart) { fn(c) })
}

// mutate applies fn to copies of the state, writes the touched collection
// and only then commits the copies. A failed write leaves state unchanged.
// Before hydration nothing is written.
func (s *Store) mutate(ctx context.Context, op Op, id domain.ProductID, coll Collection, fn func(*domain.Favorites, *domain.Cart)) error {
	s.mu.Lock()

	favorites := s.favorites.Clone()
	cart := s.cart.Clone()
	fn(&favorites, &cart)

	if s.hydrated {
		key, ids := CartKey, cart.IDs()
		if coll == CollectionFavorites {
			key, ids = FavoritesKey, favorites.IDs()
		}
		if err := s.kv.Set(ctx, key, EncodeIDs(ids)); err != nil {
			s.mu.Unlock()
			stateWrites.WithLabelValues(string(coll), "error").Inc()
			s.logger.ErrorContext(ctx, "failed to persist shop state",
				slog.String("op", string(op)),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("persist %s: %w", key, err)
		}
		stateWrites.WithLabelValues(string(coll), "ok").Inc()
	}

	s.favorites = favorites
	s.cart = cart
	s.commitLocked(ctx, Change{Op: op, Collection: coll, ProductID: id})
	return nil
}

// commitLocked takes a delivery ticket, releases mu and delivers change to
// listeners once every earlier ticket has been delivered.
func (s *Store) commitLocked(ctx context.Context, change Change) {
	change.State = s.snapshotLocked()
	ticket := s.seq
	s.seq++
	s.mu.Unlock()

	s.notifyMu.Lock()
	for s.delivered != ticket {
		s.notifyCond.Wait()
	}
	defer func() {
		s.delivered++
		s.notifyCond.Broadcast()
		s.notifyMu.Unlock()
	}()

	s.lmu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			listeners = append(listeners, l)
		}
	}
	s.lmu.Unlock()

	for _, l := range listeners {
		l(ctx, change)
	}
}
