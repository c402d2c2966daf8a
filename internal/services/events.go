package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gator-market/apiserver/internal/mq"
	"github.com/gator-market/apiserver/types"
)

// ListingsChannel is the broker channel listing lifecycle events are
// published to.
const ListingsChannel = "marketplace.listings"

const (
	EventListingCreated = "listing.created"
	EventListingSold    = "listing.sold"
	EventListingDeleted = "listing.deleted"
)

// ListingEvent is the JSON payload published on listing mutations.
type ListingEvent struct {
	Event   string        `json:"event"`
	Listing types.Listing `json:"listing"`
}

// EventPublisher emits listing lifecycle events to the configured
// broker. Publishing is best-effort: failures are logged and never fail
// the request that triggered them. A nil publisher is disabled.
type EventPublisher struct {
	mq *mq.MQ
}

func NewEventPublisher(broker *mq.MQ) *EventPublisher {
	if broker == nil {
		return nil
	}
	return &EventPublisher{mq: broker}
}

func (p *EventPublisher) ListingCreated(ctx context.Context, listing types.Listing) {
	p.publish(ctx, EventListingCreated, listing)
}

func (p *EventPublisher) ListingSold(ctx context.Context, listing types.Listing) {
	p.publish(ctx, EventListingSold, listing)
}

func (p *EventPublisher) ListingDeleted(ctx context.Context, listing types.Listing) {
	p.publish(ctx, EventListingDeleted, listing)
}

func (p *EventPublisher) publish(ctx context.Context, event string, listing types.Listing) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(ListingEvent{Event: event, Listing: listing})
	if err != nil {
		log.Printf("mq: marshal %s event: %v", event, err)
		return
	}
	attrs := map[string]string{"event": event}
	if _, err := p.mq.Publish(ctx, ListingsChannel, payload, attrs); err != nil {
		log.Printf("mq: publish %s event: %v", event, err)
	}
}
