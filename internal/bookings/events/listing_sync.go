package events

import (
	"context"
	"errors"
	"fmt"

	"nestbook/pkg/kafka"
	"nestbook/pkg/logger"
	"nestbook/pkg/model"
)

// ListingDetacher clears the listing reference of bookings on a deleted listing.
type ListingDetacher interface {
	DetachListing(ctx context.Context, kind model.BookingKind, listingID string) (int64, error)
}

// NewListingDeletedHandler turns listing.deleted events into DetachListing calls.
// Other event types on the topic are acknowledged and skipped.
func NewListingDeletedHandler(detacher ListingDetacher, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.ListingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("invalid listing event", err)
		}

		eventType := event.Type
		if eventType == "" {
			eventType = msg.GetEventType()
		}
		if eventType != model.EventListingDeleted {
			return nil
		}

		if !event.Kind.Valid() || event.ListingID == "" {
			return kafka.NewPermanentError("invalid listing event",
				fmt.Errorf("kind=%q listing_id=%q", event.Kind, event.ListingID))
		}

		n, err := detacher.DetachListing(ctx, event.Kind, event.ListingID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return kafka.NewTransientError("failed to detach listing", err)
		}

		log.Info("Detached bookings from deleted listing",
			"kind", event.Kind,
			"listing_id", event.ListingID,
			"bookings", n,
		)
		return nil
	}
}
