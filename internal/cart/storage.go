package cart

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smartdot/storefront-backend/pkg/logger"
	"github.com/smartdot/storefront-backend/pkg/metrics"
	"github.com/smartdot/storefront-backend/pkg/uri"
)

// Adapter owns one snapshot slot key. It is the only trust boundary for data read back from the slot.
type Adapter struct {
	slot    Slot
	key     string
	maxAge  time.Duration
	now     func() time.Time
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

// AdapterOption customises an Adapter.
type AdapterOption func(*Adapter)

// WithClock overrides the time source used for timestamps and expiry.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithMaxAge sets how old a snapshot may be before Load discards it.
func WithMaxAge(maxAge time.Duration) AdapterOption {
	return func(a *Adapter) {
		if maxAge > 0 {
			a.maxAge = maxAge
		}
	}
}

func WithAdapterLogger(logg *logger.Logger) AdapterOption {
	return func(a *Adapter) {
		if logg != nil {
			a.logg = logg
		}
	}
}

func WithAdapterMetrics(m *metrics.CartMetrics) AdapterOption {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// SlotKey builds the per-session slot key.
func SlotKey(storageKey, sessionID string) string {
	if storageKey == "" {
		storageKey = DefaultStorageKey
	}
	return storageKey + ":" + sessionID
}

// NewAdapter binds an adapter to one key of slot.
func NewAdapter(slot Slot, key string, opts ...AdapterOption) (*Adapter, error) {
	if slot == nil {
		return nil, errors.New("cart slot required")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("cart storage key required")
	}
	a := &Adapter{
		slot:   slot,
		key:    key,
		maxAge: DefaultMaxAge,
		now:    time.Now,
		logg:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Key returns the slot key this adapter reads and writes.
func (a *Adapter) Key() string {
	return a.key
}

type envelope struct {
	Version   string    `json:"version"`
	Cart      CartState `json:"cart"`
	Timestamp int64     `json:"timestamp"`
}

// Save writes a sanitized snapshot. Failures are logged and counted, never returned;
// the result only reports whether the slot now holds state.
func (a *Adapter) Save(ctx context.Context, state CartState) bool {
	encoded, err := a.encode(state)
	if err != nil {
		a.failure(ctx, "save", "cart.snapshot.encode_failed", err)
		return false
	}
	if err := a.slot.Set(ctx, a.key, encoded, a.maxAge); err != nil {
		a.failure(ctx, "save", "cart.snapshot.save_failed", err)
		return false
	}
	return true
}

// Load restores the snapshot if one exists and passes every check.
// Anything malformed, stale or from another format version is erased and reported as absent.
func (a *Adapter) Load(ctx context.Context) (CartState, bool) {
	state, found, _ := a.read(ctx)
	return state, found
}

// Latest returns what the slot currently holds, an empty cart when nothing valid is stored.
// ok is false only when the slot could not be read.
func (a *Adapter) Latest(ctx context.Context) (CartState, bool) {
	state, _, err := a.read(ctx)
	return state, err == nil
}

func (a *Adapter) read(ctx context.Context) (CartState, bool, error) {
	raw, found, err := a.slot.Get(ctx, a.key)
	if err != nil {
		a.failure(ctx, "load", "cart.snapshot.load_failed", err)
		return EmptyState(), false, err
	}
	if !found || raw == "" {
		return EmptyState(), false, nil
	}
	state, err := a.decode(raw)
	if err != nil {
		a.logg.Warn(a.logg.WithField(ctx, "reason", err.Error()), "cart.snapshot.discarded")
		a.Clear(ctx)
		return EmptyState(), false, nil
	}
	return state, true, nil
}

// Clear deletes the snapshot.
func (a *Adapter) Clear(ctx context.Context) bool {
	if err := a.slot.Delete(ctx, a.key); err != nil {
		a.failure(ctx, "clear", "cart.snapshot.clear_failed", err)
		return false
	}
	return true
}

// IsAvailable probes whether the slot accepts writes.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if err := a.slot.Set(ctx, availabilityProbeKey, availabilityProbeKey, time.Minute); err != nil {
		a.failure(ctx, "probe", "cart.storage.unavailable", err)
		return false
	}
	if err := a.slot.Delete(ctx, availabilityProbeKey); err != nil {
		a.failure(ctx, "probe", "cart.storage.unavailable", err)
		return false
	}
	return true
}

func (a *Adapter) failure(ctx context.Context, op, msg string, err error) {
	a.metrics.IncPersistenceFailure(op)
	a.logg.Error(a.logg.WithField(ctx, "slot_key", a.key), msg, err)
}

func (a *Adapter) encode(state CartState) (string, error) {
	payload, err := json.Marshal(envelope{
		Version:   StorageVersion,
		Cart:      SanitizeState(state),
		Timestamp: a.now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(uri.EscapeComponent(string(payload)))), nil
}

type rawEnvelope struct {
	Version   *string  `json:"version"`
	Cart      *rawCart `json:"cart"`
	Timestamp *float64 `json:"timestamp"`
}

type rawCart struct {
	Items     *[]json.RawMessage `json:"items"`
	Total     *float64           `json:"total"`
	ItemCount *float64           `json:"itemCount"`
}

type rawItem struct {
	ID       *string    `json:"id"`
	Name     *string    `json:"name"`
	Price    flexNumber `json:"price"`
	Quantity flexNumber `json:"quantity"`
	Image    *string    `json:"image"`
	MaxStock flexNumber `json:"maxStock"`
}

func (a *Adapter) decode(raw string) (CartState, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return CartState{}, fmt.Errorf("base64: %w", err)
	}
	text, err := url.PathUnescape(string(decoded))
	if err != nil {
		return CartState{}, fmt.Errorf("uri decode: %w", err)
	}

	var env rawEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return CartState{}, fmt.Errorf("json: %w", err)
	}
	if env.Version == nil || *env.Version != StorageVersion {
		return CartState{}, errors.New("version mismatch")
	}
	if env.Cart == nil || env.Cart.Items == nil || env.Cart.Total == nil || env.Cart.ItemCount == nil {
		return CartState{}, errors.New("cart shape")
	}
	if env.Timestamp == nil {
		return CartState{}, errors.New("missing timestamp")
	}
	written := time.UnixMilli(int64(*env.Timestamp))
	if a.now().Sub(written) > a.maxAge {
		return CartState{}, errors.New("expired")
	}

	rows := *env.Cart.Items
	if len(rows) > MaxItems {
		return CartState{}, errors.New("too many items")
	}
	items := make([]CartItem, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		item, err := decodeItem(row)
		if err != nil {
			return CartState{}, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[item.ID]; dup {
			return CartState{}, fmt.Errorf("item %d: duplicate id", i)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return withDerived(items), nil
}

func decodeItem(row json.RawMessage) (CartItem, error) {
	var in rawItem
	if err := json.Unmarshal(row, &in); err != nil {
		return CartItem{}, err
	}
	if in.ID == nil || strings.TrimSpace(*in.ID) == "" {
		return CartItem{}, errors.New("missing id")
	}
	if in.Name == nil {
		return CartItem{}, errors.New("missing name")
	}
	if !in.Price.set || ValidatePrice(in.Price.value) != nil {
		return CartItem{}, errors.New("price")
	}
	if !in.Quantity.set || !in.Quantity.integral() || ValidateQuantity(int(in.Quantity.value)) != nil {
		return CartItem{}, errors.New("quantity")
	}
	item := CartItem{
		ID:       strings.TrimSpace(*in.ID),
		Name:     SanitizeString(*in.Name),
		Price:    in.Price.value,
		Quantity: int(in.Quantity.value),
	}
	if item.Name == "" {
		return CartItem{}, errors.New("empty name")
	}
	if in.Image != nil {
		item.Image = strings.TrimSpace(*in.Image)
	}
	// maxStock 0 is how an unset ceiling was historically written.
	if in.MaxStock.set && in.MaxStock.value != 0 {
		if !in.MaxStock.integral() || in.MaxStock.value < 0 {
			return CartItem{}, errors.New("max stock")
		}
		ceiling := int(in.MaxStock.value)
		if item.Quantity > ceiling {
			return CartItem{}, errors.New("quantity above max stock")
		}
		item.MaxStock = intPtr(ceiling)
	}
	return item, nil
}

// flexNumber accepts a JSON number or a numeric string, mirroring how older snapshots coerced values.
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("not a number: %q", text)
	}
	f.value = v
	f.set = true
	return nil
}

func (f flexNumber) integral() bool {
	return f.value == math.Trunc(f.value) && math.Abs(f.value) <= math.MaxInt32
}
