// Package orphans keeps track of identities left behind by failed provisioning
// runs whose cleanup also failed, so an operator can remove them later.
package orphans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"venue_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// RegistryKey is the Redis hash holding one entry per orphaned identity.
const RegistryKey = "venue_users:orphaned_identities"

// Orphan is one identity awaiting manual cleanup.
type Orphan struct {
	IdentityID string    `json:"identityId"`
	Email      string    `json:"email"`
	VenueID    string    `json:"venueId"`
	Stage      string    `json:"stage"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Registry stores orphans in a Redis hash keyed by identity id.
type Registry struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient connects to the URL from cfg and checks that Redis answers.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, errors.New("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRegistry(client *redis.Client) *Registry {
	return &Registry{client: client, now: time.Now}
}

// Record stores o, stamping RecordedAt when it is unset. Recording the same
// identity twice keeps the latest entry.
func (r *Registry) Record(ctx context.Context, o Orphan) error {
	if o.IdentityID == "" {
		return errors.New("orphan has no identity id")
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = r.now().UTC()
	}

	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal orphan: %w", err)
	}
	return r.client.HSet(ctx, RegistryKey, o.IdentityID, payload).Err()
}

// List returns all recorded orphans, oldest first.
func (r *Registry) List(ctx context.Context) ([]Orphan, error) {
	entries, err := r.client.HGetAll(ctx, RegistryKey).Result()
	if err != nil {
		return nil, err
	}

	orphans := make([]Orphan, 0, len(entries))
	for id, raw := range entries {
		var o Orphan
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, fmt.Errorf("decode orphan %s: %w", id, err)
		}
		orphans = append(orphans, o)
	}

	sort.Slice(orphans, func(i, j int) bool {
		if orphans[i].RecordedAt.Equal(orphans[j].RecordedAt) {
			return orphans[i].IdentityID < orphans[j].IdentityID
		}
		return orphans[i].RecordedAt.Before(orphans[j].RecordedAt)
	})
	return orphans, nil
}

// Remove drops the entry for identityID. Removing an unknown id is not an error.
func (r *Registry) Remove(ctx context.Context, identityID string) error {
	return r.client.HDel(ctx, RegistryKey, identityID).Err()
}
