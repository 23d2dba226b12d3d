// Package events publishes engagement changes on Redis Pub/Sub and lets
// callers follow the changes that concern one user.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types double as Redis channel names.
const (
	TypeMatchProposed          = "EVENT_MATCH_PROPOSED"
	TypeMatchUpdated           = "EVENT_MATCH_UPDATED"
	TypeAssignmentCreated      = "EVENT_ASSIGNMENT_CREATED"
	TypeAssignmentUpdated      = "EVENT_ASSIGNMENT_UPDATED"
	TypeRecommendationsRefresh = "EVENT_RECOMMENDATIONS_REFRESHED"
)

// Channels lists every channel the feed publishes on.
var Channels = []string{
	TypeMatchProposed,
	TypeMatchUpdated,
	TypeAssignmentCreated,
	TypeAssignmentUpdated,
	TypeRecommendationsRefresh,
}

// Event is the payload published for every change.
type Event struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	ActorID  string    `json:"actorId,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Parties  []string  `json:"parties"`
	At       time.Time `json:"at"`
}

// Concerns reports whether userID is one of the event's parties.
func (e Event) Concerns(userID string) bool {
	return userID != "" && slices.Contains(e.Parties, userID)
}

// Publisher emits events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// RedisFeed is a Publisher backed by Redis Pub/Sub.
type RedisFeed struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisFeed returns a feed on rdb.
func NewRedisFeed(rdb *redis.Client, log *zap.Logger) *RedisFeed {
	return &RedisFeed{rdb: rdb, log: log}
}

// Publish sends e on the channel named after its type.
func (f *RedisFeed) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	if err := f.rdb.Publish(ctx, e.Type, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Subscribe streams the events concerning userID until ctx is done. The
// returned channel is closed when the subscription ends.
func (f *RedisFeed) Subscribe(ctx context.Context, userID string) (<-chan Event, error) {
	sub := f.rdb.Subscribe(ctx, Channels...)
	// Wait for the subscription confirmation so errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				e, err := Decode([]byte(msg.Payload))
				if err != nil {
					f.log.Warn("dropping undecodable event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				if !e.Concerns(userID) {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Decode parses a published payload.
func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return e, nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
