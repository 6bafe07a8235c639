package main

import (
	"context"
	"time"
)

func (app *application) startBackground(ctx context.Context) {
	go app.carts.RunSync(ctx, app.config.cart.syncInterval)
	go app.purgeExpiredCarts(ctx, app.config.cart.purgeInterval)
}

// purgeExpiredCarts deletes abandoned carts once immediately and then every
// interval.
func (app *application) purgeExpiredCarts(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := app.cartStore.PurgeExpired(ctx)
		if err != nil {
			app.logger.Errorw("purge expired carts", "error", err)
		} else if n > 0 {
			app.logger.Infow("purged expired carts", "count", n, "at", time.Now().Format(time.RFC1123))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
