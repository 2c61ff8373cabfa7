// Package notifications propagates feed changes between processes and out to
// connected clients. Redis pub/sub carries the change events; the websocket
// hub fans them out so every open session observes mutations made elsewhere.
package notifications

import (
	"context"
	"encoding/json"
	"log"
	"runtime/debug"

	"citypulse/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// FeedChannel is the pub/sub channel carrying feed change events.
const FeedChannel = "civic:feed"

// Feed event actions.
const (
	ActionUpsert  = "upsert"
	ActionDelete  = "delete"
	ActionLike    = "like"
	ActionDislike = "dislike"
	ActionComment = "comment"
	ActionShare   = "share"
	ActionStatus  = "status"
	ActionReload  = "reload"
)

// FeedEvent describes one change to the rendered feed. PostID is empty for
// whole-collection events (seeding, bulk save).
type FeedEvent struct {
	Action string `json:"action"`
	PostID string `json:"post_id,omitempty"`
}

// Notifier publishes and subscribes to feed change events over Redis.
// A nil Redis client disables it; every method is then a no-op, so callers
// never need to guard.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier backed by the given Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishFeedEvent announces a feed change to every subscriber.
func (n *Notifier) PublishFeedEvent(ctx context.Context, ev FeedEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, FeedChannel, payload).Err(); err != nil {
		return err
	}
	middleware.FeedEventsPublished.WithLabelValues(ev.Action).Inc()
	return nil
}

// StartSubscriber subscribes to the feed channel and invokes onEvent for each
// incoming event until ctx is cancelled. Malformed payloads are dropped.
func (n *Notifier) StartSubscriber(ctx context.Context, onEvent func(FeedEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, FeedChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev FeedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("feed subscriber: dropping malformed event: %v", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in feed subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
