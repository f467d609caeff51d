package repository

import (
	"fmt"

	"nestbook/pkg/config"
)

// NewBookingRepository picks the store for cfg.StoreDriver. The matching client
// must already be connected (cfg.SetStore).
func NewBookingRepository(cfg *config.Config) (BookingRepository, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("mongo client is not connected")
		}
		return NewMongoBookingRepository(cfg), nil
	case config.StorePostgres:
		if cfg.Client.Postgres == nil {
			return nil, fmt.Errorf("postgres pool is not connected")
		}
		return NewPostgresBookingRepository(cfg.Client.Postgres), nil
	case config.StoreMemory:
		return NewMemoryBookingRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
