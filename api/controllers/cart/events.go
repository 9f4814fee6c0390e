package cart

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	cartsvc "github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/pkg/logger"
)

const keepAliveInterval = 25 * time.Second

// Events streams cart snapshots as server-sent events. The first event is the
// current cart; later events follow every successful mutation of the session.
// Slow readers only ever see the latest snapshot.
func Events(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return withStore(sessions, logg, func(w http.ResponseWriter, r *http.Request, store *cartsvc.Store) {
		rc := http.NewResponseController(w)
		// the stream outlives the server write timeout
		_ = rc.SetWriteDeadline(time.Time{})

		updates := make(chan cartsvc.CartState, 1)
		unsubscribe := store.Subscribe(func(state cartsvc.CartState) {
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- state:
			default:
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := r.Context()
		if logg != nil {
			logg.Debug(ctx, "cart.events.subscribed")
		}
		if err := writeEvent(w, rc, store.Snapshot()); err != nil {
			return
		}

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if logg != nil {
					logg.Debug(ctx, "cart.events.closed")
				}
				return
			case state := <-updates:
				if err := writeEvent(w, rc, state); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	})
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, state cartsvc.CartState) error {
	payload, err := json.Marshal(newCartResponse(state))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return rc.Flush()
}
