package main

import (
	"context"
	"time"
)

func (app *application) startBackgroundJobs() {
	app.markPastEventsEveryHour()
	app.pruneStalePushTokensDaily()
}

func (app *application) markPastEventsEveryHour() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		// Run once immediately
		app.sweepPastEvents()

		for range ticker.C {
			app.sweepPastEvents()
		}
	}()
}

func (app *application) sweepPastEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	flipped, err := app.store.Events.MarkPastEvents(ctx)
	if err != nil {
		app.logger.Errorf("Error marking events as past: %v", err)
		return
	}
	if flipped > 0 {
		app.logger.Infof("Marked %d events as past at %s", flipped, time.Now().Format(time.RFC1123))
	}
}

func (app *application) pruneStalePushTokensDaily() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

			// Tokens untouched for 70 days belong to uninstalled apps.
			if err := app.store.PushTokens.PruneStaleTokens(ctx, 70*24*time.Hour); err != nil {
				app.logger.Errorf("Error pruning stale push tokens: %v", err)
			}
			cancel()
		}
	}()
}
