package cart

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/smartdot/storefront-backend/pkg/logger"
	"github.com/smartdot/storefront-backend/pkg/metrics"
)

const (
	opAddItem        = "add_item"
	opRemoveItem     = "remove_item"
	opUpdateQuantity = "update_quantity"
	opClear          = "clear"
)

// StoreParams wires a Store. A nil Adapter runs the cart in memory only.
type StoreParams struct {
	Adapter *Adapter
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

// Store holds one session's cart. Mutations run one at a time: validate, recompute,
// write through to the adapter, then notify subscribers, before the next one starts.
// Listeners run on the mutating goroutine and must not call back into mutators.
type Store struct {
	opMu sync.Mutex

	stateMu   sync.RWMutex
	state     CartState
	listeners map[uint64]func(CartState)
	nextSub   uint64
	closed    bool

	// dirty is set while the slot lags behind state after a failed write.
	dirty   bool
	adapter *Adapter
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

// NewStore builds a store, restoring the persisted snapshot when the slot is usable.
func NewStore(ctx context.Context, params StoreParams) *Store {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{
		state:     EmptyState(),
		listeners: make(map[uint64]func(CartState)),
		logg:      logg,
		metrics:   params.Metrics,
	}
	if params.Adapter == nil {
		return s
	}
	if !params.Adapter.IsAvailable(ctx) {
		logg.Warn(ctx, "cart.storage.memory_only")
		return s
	}
	s.adapter = params.Adapter
	if restored, ok := s.adapter.Load(ctx); ok {
		s.state = restored
	}
	return s
}

func (s *Store) ensureOpen() {
	if s == nil {
		panic(ErrStoreNotInitialized)
	}
	s.stateMu.RLock()
	closed := s.closed
	s.stateMu.RUnlock()
	if closed {
		panic(ErrStoreNotInitialized)
	}
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() CartState {
	s.ensureOpen()
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.clone()
}

// IsInCart reports whether a row with id exists.
func (s *Store) IsInCart(id string) bool {
	s.ensureOpen()
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.indexOf(strings.TrimSpace(id)) >= 0
}

// AddItem adds quantity units of candidate, merging into the existing row when the id is already present.
func (s *Store) AddItem(ctx context.Context, candidate Candidate, quantity int) (CartState, error) {
	return s.mutate(ctx, opAddItem, func(current CartState) (CartState, bool, error) {
		next, err := applyAdd(current, candidate, quantity)
		return next, err == nil, err
	})
}

// RemoveItem drops the row with id. Removing an absent id is a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) (CartState, error) {
	return s.mutate(ctx, opRemoveItem, func(current CartState) (CartState, bool, error) {
		next, changed := applyRemove(current, id)
		return next, changed, nil
	})
}

// UpdateQuantity sets the quantity of an existing row. Unknown ids leave the cart unchanged.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) (CartState, error) {
	return s.mutate(ctx, opUpdateQuantity, func(current CartState) (CartState, bool, error) {
		return applyUpdate(current, id, quantity)
	})
}

// Clear empties the cart and erases the persisted snapshot.
func (s *Store) Clear(ctx context.Context) CartState {
	state, _ := s.mutate(ctx, opClear, func(CartState) (CartState, bool, error) {
		return EmptyState(), true, nil
	})
	return state
}

// Subscribe registers listener for every successful mutation. The returned func unsubscribes.
func (s *Store) Subscribe(listener func(CartState)) func() {
	s.ensureOpen()
	if listener == nil {
		return func() {}
	}
	s.stateMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.listeners[id] = listener
	s.stateMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.stateMu.Lock()
			delete(s.listeners, id)
			s.stateMu.Unlock()
		})
	}
}

// Refresh pulls the latest snapshot from the slot so changes written through another
// replica sharing it are visible. Subscribers hear about the new state when it differs.
func (s *Store) Refresh(ctx context.Context) CartState {
	s.ensureOpen()
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.ensureOpen()

	state, changed := s.syncLocked(ctx)
	if changed {
		s.notify(state)
	}
	return state.clone()
}

// Close drops all listeners. Any later call on the store panics.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.stateMu.Lock()
	s.closed = true
	s.listeners = nil
	s.stateMu.Unlock()
}

type transition func(current CartState) (next CartState, changed bool, err error)

func (s *Store) mutate(ctx context.Context, op string, apply transition) (CartState, error) {
	s.ensureOpen()
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.ensureOpen()

	current, synced := s.syncLocked(ctx)
	next, changed, err := apply(current)
	if err != nil {
		if synced {
			s.notify(current)
		}
		s.metrics.IncMutation(op, metrics.ResultRejected)
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"op": op, "reason": err.Error()}), "cart.mutation.rejected")
		return current.clone(), err
	}
	if !changed {
		if synced {
			s.notify(current)
		}
		s.metrics.IncMutation(op, metrics.ResultOK)
		return current.clone(), nil
	}

	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()

	if s.adapter != nil {
		if op == opClear {
			s.dirty = !s.adapter.Clear(ctx)
		} else {
			s.dirty = !s.adapter.Save(ctx, next)
		}
	}
	s.notify(next)
	s.metrics.IncMutation(op, metrics.ResultOK)
	return next.clone(), nil
}

// syncLocked replaces state with the slot's copy when they differ. A slot that cannot be read,
// or that missed the last write, leaves state as is. Callers hold opMu.
func (s *Store) syncLocked(ctx context.Context) (CartState, bool) {
	// only opMu holders write state, so reading without stateMu is safe here
	if s.adapter == nil || s.dirty {
		return s.state, false
	}
	latest, ok := s.adapter.Latest(ctx)
	if !ok || reflect.DeepEqual(latest.Items, s.state.Items) {
		return s.state, false
	}
	s.stateMu.Lock()
	s.state = latest
	s.stateMu.Unlock()
	return latest, true
}

func (s *Store) notify(state CartState) {
	s.stateMu.RLock()
	listeners := make([]func(CartState), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.stateMu.RUnlock()
	for _, l := range listeners {
		l(state.clone())
	}
}

func applyAdd(current CartState, candidate Candidate, quantity int) (CartState, error) {
	id := strings.TrimSpace(candidate.ID)
	idx := current.indexOf(id)
	if idx < 0 {
		if err := ValidateItem(candidate, quantity, len(current.Items)); err != nil {
			return CartState{}, err
		}
		items := make([]CartItem, len(current.Items), len(current.Items)+1)
		copy(items, current.Items)
		items = append(items, CartItem{
			ID:       id,
			Name:     SanitizeString(candidate.Name),
			Price:    candidate.Price,
			Quantity: quantity,
			Image:    strings.TrimSpace(candidate.Image),
			MaxStock: copyInt(candidate.MaxStock),
		})
		return withDerived(items), nil
	}

	if err := ValidateQuantity(quantity); err != nil {
		return CartState{}, err
	}
	row := current.Items[idx]
	ceiling := row.MaxStock
	if candidate.MaxStock != nil {
		if *candidate.MaxStock < 0 {
			return CartState{}, reject(ReasonInvalidItem, "Invalid stock value")
		}
		ceiling = candidate.MaxStock
	}
	total := row.Quantity + quantity
	if total > MaxQuantityPerItem {
		return CartState{}, reject(ReasonExceedsItemCap, fmt.Sprintf("Maximum quantity is %d", MaxQuantityPerItem))
	}
	if ceiling != nil && total > *ceiling {
		return CartState{}, reject(ReasonExceedsStock, fmt.Sprintf("Only %d items available in stock", *ceiling))
	}

	items := make([]CartItem, len(current.Items))
	copy(items, current.Items)
	items[idx].Quantity = total
	items[idx].MaxStock = copyInt(ceiling)
	return withDerived(items), nil
}

func applyRemove(current CartState, id string) (CartState, bool) {
	idx := current.indexOf(strings.TrimSpace(id))
	if id == "" || idx < 0 {
		return current, false
	}
	items := make([]CartItem, 0, len(current.Items)-1)
	items = append(items, current.Items[:idx]...)
	items = append(items, current.Items[idx+1:]...)
	return withDerived(items), true
}

func applyUpdate(current CartState, id string, quantity int) (CartState, bool, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return CartState{}, false, err
	}
	idx := current.indexOf(strings.TrimSpace(id))
	if idx < 0 {
		return current, false, nil
	}
	row := current.Items[idx]
	if row.MaxStock != nil && quantity > *row.MaxStock {
		return CartState{}, false, reject(ReasonExceedsStock, fmt.Sprintf("Only %d items available in stock", *row.MaxStock))
	}
	if row.Quantity == quantity {
		return current, false, nil
	}
	items := make([]CartItem, len(current.Items))
	copy(items, current.Items)
	items[idx].Quantity = quantity
	return withDerived(items), true, nil
}
