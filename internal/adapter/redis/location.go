package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

const DefaultFixTTL = 10 * time.Minute

// FixStore is the durable store the cache sits in front of.
type FixStore interface {
	Save(ctx context.Context, fix *models.Fix) error
	LatestFix(ctx context.Context, vehicleID int64) (*models.Fix, error)
	LatestSince(ctx context.Context, since time.Time) ([]*models.Fix, error)
	History(ctx context.Context, vehicleID int64, since time.Time, limit int) ([]*models.Fix, error)
}

// setIfNewer stores a fix only when it is not older than the cached one, so
// concurrent writers cannot move a vehicle back in time.
//
// KEYS[1] hash key; ARGV: timestamp (unix ms), fix json, ttl (ms)
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'fix', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// LocationCache keeps the latest fix of every vehicle in Redis. Writes go to
// the durable store first; cache failures are logged and never fail a call.
type LocationCache struct {
	store  FixStore
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewLocationCache(store FixStore, client *redis.Client, ttl time.Duration, log logger.Logger) *LocationCache {
	if ttl <= 0 {
		ttl = DefaultFixTTL
	}
	return &LocationCache{
		store:  store,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (c *LocationCache) Save(ctx context.Context, fix *models.Fix) error {
	if err := c.store.Save(ctx, fix); err != nil {
		return err
	}

	if err := c.put(ctx, fix); err != nil {
		c.warn(ctx, "failed to cache location", err)
	}
	return nil
}

// LatestFix reads the cache and falls back to the store on a miss.
func (c *LocationCache) LatestFix(ctx context.Context, vehicleID int64) (*models.Fix, error) {
	raw, err := c.client.HGet(ctx, key(vehicleID), "fix").Bytes()
	switch {
	case err == nil:
		var fix models.Fix
		if err := json.Unmarshal(raw, &fix); err == nil {
			return &fix, nil
		}
		c.warn(ctx, "corrupted cached location", err)
	case !errors.Is(err, redis.Nil):
		c.warn(ctx, "failed to read cached location", err)
	}

	fix, err := c.store.LatestFix(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if err := c.put(ctx, fix); err != nil {
		c.warn(ctx, "failed to cache location", err)
	}
	return fix, nil
}

func (c *LocationCache) LatestSince(ctx context.Context, since time.Time) ([]*models.Fix, error) {
	return c.store.LatestSince(ctx, since)
}

func (c *LocationCache) History(ctx context.Context, vehicleID int64, since time.Time, limit int) ([]*models.Fix, error) {
	return c.store.History(ctx, vehicleID, since, limit)
}

func (c *LocationCache) put(ctx context.Context, fix *models.Fix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}

	return setIfNewer.Run(ctx, c.client,
		[]string{key(fix.VehicleID)},
		fix.Timestamp.UnixMilli(),
		data,
		c.ttl.Milliseconds(),
	).Err()
}

func (c *LocationCache) warn(ctx context.Context, msg string, err error) {
	ctx = wrap.WithAction(ctx, types.ActionCacheFailed)
	c.log.Warn(ctx, msg, "error", err.Error())
}

func key(vehicleID int64) string {
	return "location:latest:" + strconv.FormatInt(vehicleID, 10)
}
