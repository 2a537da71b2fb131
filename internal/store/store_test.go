package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage/memory"
)

// flakyKV wraps the memory backend and fails on demand.
type flakyKV struct {
	*memory.Store
	mu      sync.Mutex
	getErr  error
	setErr  error
	setKeys []string
}

func newFlakyKV() *flakyKV {
	return &flakyKV{Store: memory.New()}
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	err := f.setErr
	f.setKeys = append(f.setKeys, key)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value)
}

func (f *flakyKV) raw(t *testing.T, key string) string {
	t.Helper()
	v, ok, err := f.Store.Get(context.Background(), key)
	require.NoError(t, err)
	if !ok {
		return ""
	}
	return string(v)
}

func newHydrated(t *testing.T, kv *flakyKV) *Store {
	t.Helper()
	s := New(kv)
	require.NoError(t, s.Hydrate(context.Background()))
	return s
}

func ids(v ...int64) []domain.ProductID {
	out := make([]domain.ProductID, len(v))
	for i, id := range v {
		out[i] = domain.ProductID(id)
	}
	return out
}

// ---------------------------------------------------------------------------
// Favorites
// ---------------------------------------------------------------------------

func TestStore_ToggleFavoriteTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	_, err := s.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	before := s.Snapshot().Favorites.IDs()

	on, err := s.ToggleFavorite(ctx, 7)
	require.NoError(t, err)
	assert.True(t, on)
	off, err := s.ToggleFavorite(ctx, 7)
	require.NoError(t, err)
	assert.False(t, off)

	assert.Equal(t, before, s.Snapshot().Favorites.IDs())
}

func TestStore_FavoritesNeverDuplicate(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	require.NoError(t, kv.Store.Set(ctx, FavoritesKey, []byte(`[2,2,3,2]`)))
	s := newHydrated(t, kv)

	assert.Equal(t, ids(2, 3), s.Snapshot().Favorites.IDs())

	for i := 0; i < 5; i++ {
		_, err := s.ToggleFavorite(ctx, 9)
		require.NoError(t, err)
	}
	assert.Equal(t, ids(2, 3, 9), s.Snapshot().Favorites.IDs())
	assert.Equal(t, `[2,3,9]`, kv.raw(t, FavoritesKey))
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

func TestStore_AddToCartAccumulates(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	for want := 1; want <= 3; want++ {
		qty, err := s.AddToCart(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, want, qty)
	}

	entries := s.Snapshot().Cart.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ProductID(5), entries[0].ProductID)
	assert.Equal(t, 3, entries[0].Quantity)
	assert.Equal(t, `[5,5,5]`, kv.raw(t, CartKey))
}

func TestStore_RemoveFromCart(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	_, err := s.AddToCart(ctx, 5)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 5)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 6)
	require.NoError(t, err)

	require.NoError(t, s.RemoveFromCart(ctx, 5))

	cart := s.Snapshot().Cart
	assert.False(t, cart.Contains(5))
	assert.Equal(t, ids(6), cart.IDs())
}

func TestStore_ToggleCart(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	require.NoError(t, s.SetQuantity(ctx, 4, 3))

	in, err := s.ToggleCart(ctx, 4)
	require.NoError(t, err)
	assert.False(t, in)
	assert.False(t, s.Snapshot().Cart.Contains(4))

	in, err = s.ToggleCart(ctx, 4)
	require.NoError(t, err)
	assert.True(t, in)
	assert.Equal(t, 1, s.Snapshot().Cart.Quantity(4))
}

func TestStore_SetQuantity(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	require.NoError(t, s.SetQuantity(ctx, 1, 2))
	require.NoError(t, s.SetQuantity(ctx, 2, 1))
	require.NoError(t, s.SetQuantity(ctx, 1, 5))

	assert.Equal(t, ids(1, 1, 1, 1, 1, 2), s.Snapshot().Cart.IDs())

	require.NoError(t, s.SetQuantity(ctx, 1, 0))
	assert.Equal(t, ids(2), s.Snapshot().Cart.IDs())

	require.NoError(t, s.SetQuantity(ctx, 2, -3))
	assert.Equal(t, 0, s.Snapshot().Cart.Len())
}

func TestStore_AddAllFavoritesToCartIsUnion(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	for _, id := range ids(1, 2, 3) {
		_, err := s.ToggleFavorite(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetQuantity(ctx, 2, 2))

	added, err := s.AddAllFavoritesToCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	cart := s.Snapshot().Cart
	assert.Equal(t, 2, cart.Quantity(2))
	assert.Equal(t, 1, cart.Quantity(1))
	assert.Equal(t, 1, cart.Quantity(3))
	assert.Equal(t, 3, cart.Len())

	added, err = s.AddAllFavoritesToCart(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestStore_ClearCart(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	_, err := s.AddToCart(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.ClearCart(ctx))

	assert.Equal(t, 0, s.Snapshot().Cart.Len())
	assert.Equal(t, `[]`, kv.raw(t, CartKey))
}

// ---------------------------------------------------------------------------
// Hydration & persistence
// ---------------------------------------------------------------------------

func TestStore_HydrateMalformedCartIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `not json`},
		{"mixed element types", `[1,"two",3]`},
		{"object", `{"5":1}`},
		{"fractional", `[1.5]`},
		{"extra closing bracket", `[3,3,7]]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := newFlakyKV()
			require.NoError(t, kv.Store.Set(context.Background(), CartKey, []byte(tc.raw)))

			var buf bytes.Buffer
			s := New(kv, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
			require.NoError(t, s.Hydrate(context.Background()))
			assert.True(t, s.Hydrated())
			assert.Equal(t, 0, s.Snapshot().Cart.Len())
			assert.Contains(t, buf.String(), "discarding malformed persisted state")
		})
	}
}

func TestStore_HydrateEmptyArrayDoesNotWarn(t *testing.T) {
	for _, raw := range []string{`[]`, `[ ]`, "[]\n"} {
		kv := newFlakyKV()
		require.NoError(t, kv.Store.Set(context.Background(), CartKey, []byte(raw)))
		require.NoError(t, kv.Store.Set(context.Background(), FavoritesKey, []byte(raw)))

		var buf bytes.Buffer
		s := New(kv, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
		require.NoError(t, s.Hydrate(context.Background()))
		assert.NotContains(t, buf.String(), "malformed", raw)
	}
}

func TestStore_HydrateSkipsNonPositiveIDs(t *testing.T) {
	kv := newFlakyKV()
	require.NoError(t, kv.Store.Set(context.Background(), CartKey, []byte(`[1,0,3,3]`)))

	s := New(kv)
	require.NoError(t, s.Hydrate(context.Background()))
	cart := s.Snapshot().Cart
	assert.Equal(t, 1, cart.Quantity(1))
	assert.Equal(t, 2, cart.Quantity(3))
	assert.False(t, cart.Contains(0))
}

func TestStore_RoundTripThroughFreshStore(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	_, err := s.AddToCart(ctx, 3)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 7)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, s.SetQuantity(ctx, 7, 4))
	_, err = s.ToggleFavorite(ctx, 7)
	require.NoError(t, err)

	fresh := newHydrated(t, kv)
	assert.Equal(t, s.Snapshot().Cart.Entries(), fresh.Snapshot().Cart.Entries())
	assert.Equal(t, s.Snapshot().Favorites.IDs(), fresh.Snapshot().Favorites.IDs())
}

func TestStore_WritesSkippedBeforeHydration(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	require.NoError(t, kv.Store.Set(ctx, CartKey, []byte(`[9,9]`)))

	s := New(kv)
	_, err := s.AddToCart(ctx, 1)
	require.NoError(t, err)

	assert.Empty(t, kv.setKeys)
	assert.Equal(t, `[9,9]`, kv.raw(t, CartKey))
}

func TestStore_HydrateOnlyOnce(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	_, err := s.AddToCart(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, kv.Store.Set(ctx, CartKey, []byte(`[8]`)))

	require.NoError(t, s.Hydrate(ctx))
	assert.Equal(t, ids(1), s.Snapshot().Cart.IDs())
}

func TestStore_HydrateReadErrorStaysUnhydrated(t *testing.T) {
	kv := newFlakyKV()
	kv.getErr = errors.New("connection refused")

	s := New(kv)
	err := s.Hydrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hydrate favItems")
	assert.False(t, s.Hydrated())
}

func TestStore_FailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	_, err := s.AddToCart(ctx, 1)
	require.NoError(t, err)

	boom := errors.New("backend down")
	kv.setErr = boom

	_, err = s.AddToCart(ctx, 1)
	require.ErrorIs(t, err, boom)
	_, err = s.ToggleFavorite(ctx, 1)
	require.ErrorIs(t, err, boom)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Cart.Quantity(1))
	assert.Equal(t, 0, snap.Favorites.Len())
	assert.Equal(t, `[1]`, kv.raw(t, CartKey))
}

func TestStore_WritesOnlyAffectedCollection(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	_, err := s.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{FavoritesKey, CartKey}, kv.setKeys)
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestStore_SubscribeReceivesCommittedChanges(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	var got []Change
	unsubscribe := s.Subscribe(func(_ context.Context, c Change) {
		got = append(got, c)
	})

	_, err := s.ToggleFavorite(ctx, 4)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 4)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, OpToggleFavorite, got[0].Op)
	assert.Equal(t, CollectionFavorites, got[0].Collection)
	assert.Equal(t, domain.ProductID(4), got[0].ProductID)
	assert.True(t, got[0].State.Favorites.Contains(4))
	assert.Equal(t, OpAddToCart, got[1].Op)
	assert.Equal(t, 1, got[1].State.Cart.Quantity(4))

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.ClearCart(ctx))
	assert.Len(t, got, 2)
}

func TestStore_FailedWriteDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	calls := 0
	s.Subscribe(func(context.Context, Change) { calls++ })

	kv.setErr = errors.New("backend down")
	_, err := s.AddToCart(ctx, 1)
	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestStore_ListenerCanReadStore(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	var seen int
	s.Subscribe(func(context.Context, Change) {
		seen = s.Snapshot().Cart.ItemCount()
	})

	_, err := s.AddToCart(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestStore_ConcurrentMutationsSerialize(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := newHydrated(t, kv)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddToCart(ctx, 8)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Snapshot().Cart.Quantity(8))
	fresh := newHydrated(t, kv)
	assert.Equal(t, 50, fresh.Snapshot().Cart.Quantity(8))
}

func TestStore_ConcurrentDeliveryFollowsCommitOrder(t *testing.T) {
	ctx := context.Background()
	s := newHydrated(t, newFlakyKV())

	var quantities []int
	s.Subscribe(func(_ context.Context, c Change) {
		_ = s.Snapshot()
		quantities = append(quantities, c.State.Cart.Quantity(3))
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddToCart(ctx, 3)
		}()
	}
	wg.Wait()

	require.Len(t, quantities, 20)
	for i, q := range quantities {
		assert.Equal(t, i+1, q)
	}
}
