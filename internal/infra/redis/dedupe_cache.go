package redis

import (
	"context"
	"encoding/json"
	"time"

	"gds-ingestion/internal/domain/model"
)

// DedupeCache fronts the synced-file registry so repeat submissions of a
// document skip the postgres lookup on the hot path. The registry row
// stays authoritative; this is only a read-through cache.
type DedupeCache struct {
	client *Client
	ttl    time.Duration
}

func NewDedupeCache(client *Client, ttl time.Duration) *DedupeCache {
	return &DedupeCache{client: client, ttl: ttl}
}

func key(agencyID, fingerprint string) string {
	return "synced_file:" + agencyID + ":" + fingerprint
}

func (c *DedupeCache) Store(ctx context.Context, f *model.SyncedFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(f.AgencyID, f.Fingerprint), data, c.ttl)
}

// Lookup returns (nil, nil) on a cache miss.
func (c *DedupeCache) Lookup(ctx context.Context, agencyID, fingerprint string) (*model.SyncedFile, error) {
	data, err := c.client.Get(ctx, key(agencyID, fingerprint))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var f model.SyncedFile
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, err
	}
	return &f, nil
}
