package storage

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"sponsorhub/internal/domain/events"
	"sponsorhub/internal/domain/eventstatus"
	"sponsorhub/internal/domain/profiles"
	"sponsorhub/internal/domain/pushtokens"
	"sponsorhub/internal/domain/reviews"
)

// Container bundles the per-entity repositories behind their interfaces.
// Handlers depend on the container, tests swap in fakes per field.
type Container struct {
	Profiles      profiles.Store
	Events        events.Store
	Reviews       reviews.Store
	EventStatuses eventstatus.Store
	PushTokens    pushtokens.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		Profiles:      profiles.NewRepository(db),
		Events:        events.NewRepository(db),
		Reviews:       reviews.NewRepository(db),
		EventStatuses: eventstatus.NewRepository(db),
		PushTokens:    pushtokens.NewRepository(db),
	}
}
