// Package tracking is the best-effort side channel for recommendation
// click and impression events.
//
// Tracking never affects the recommendation flow: Track calls do not block,
// never return an error, and silently drop events when the queue is full,
// the rate budget is spent or the dispatcher is closed.
package tracking

import (
	"time"
)

// EventKind identifies a tracking event
type EventKind string

const (
	// EventClick is a click on a rendered recommendation
	EventClick EventKind = "click"
	// EventImpressions is a batch of recommendations shown to the user
	EventImpressions EventKind = "impressions"
)

const (
	clickPath       = "/api/track/recommendation-click"
	impressionsPath = "/api/track/recommendation-impressions"
)

// timestampLayout is RFC 3339 in UTC with millisecond precision
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Tracker records recommendation interactions
type Tracker interface {
	// TrackClick records a click on itemID
	TrackClick(itemID int64)
	// TrackImpressions records that itemIDs were shown
	TrackImpressions(itemIDs []int64)
}

// Event is a queued tracking event
type Event struct {
	Kind      EventKind
	ItemIDs   []int64
	Timestamp time.Time
}

// path returns the endpoint path for the event
func (e Event) path() string {
	if e.Kind == EventClick {
		return clickPath
	}
	return impressionsPath
}

// payload returns the JSON body for the event
func (e Event) payload() any {
	ts := e.Timestamp.UTC().Format(timestampLayout)
	if e.Kind == EventClick {
		var id int64
		if len(e.ItemIDs) > 0 {
			id = e.ItemIDs[0]
		}
		return clickPayload{ItemID: id, Timestamp: ts}
	}
	return impressionsPayload{ItemIDs: e.ItemIDs, Timestamp: ts}
}

type clickPayload struct {
	ItemID    int64  `json:"item_id"`
	Timestamp string `json:"timestamp"`
}

type impressionsPayload struct {
	ItemIDs   []int64 `json:"item_ids"`
	Timestamp string  `json:"timestamp"`
}

// NoopTracker discards every event
type NoopTracker struct{}

// TrackClick implements Tracker
func (NoopTracker) TrackClick(itemID int64) {}

// TrackImpressions implements Tracker
func (NoopTracker) TrackImpressions(itemIDs []int64) {}

var _ Tracker = NoopTracker{}
