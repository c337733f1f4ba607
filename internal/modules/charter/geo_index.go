// README: Redis GEO index of available charter origins; a pre-filter in front of Postgres.
package charter

import (
	"context"

	"github.com/redis/go-redis/v9"

	"charterhub/internal/types"
)

const DefaultIndexKey = "charterhub:charters:available"

type GeoIndex struct {
	rdb *redis.Client
	key string
}

func NewGeoIndex(rdb *redis.Client, key string) *GeoIndex {
	if key == "" {
		key = DefaultIndexKey
	}
	return &GeoIndex{rdb: rdb, key: key}
}

func (g *GeoIndex) Add(ctx context.Context, id types.ID, p types.Point) error {
	return g.rdb.GeoAdd(ctx, g.key, &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (g *GeoIndex) Remove(ctx context.Context, id types.ID) error {
	return g.rdb.ZRem(ctx, g.key, string(id)).Err()
}

func (g *GeoIndex) Search(ctx context.Context, center types.Point, radiusKm float64) ([]types.ID, error) {
	names, err := g.rdb.GeoSearch(ctx, g.key, &redis.GeoSearchQuery{
		Longitude:  center.Lng,
		Latitude:   center.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(names))
	for i, n := range names {
		ids[i] = types.ID(n)
	}
	return ids, nil
}

// Reset replaces the index contents with the given charters.
func (g *GeoIndex) Reset(ctx context.Context, charters []Charter) error {
	_, err := g.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, g.key)
		for _, c := range charters {
			pipe.GeoAdd(ctx, g.key, &redis.GeoLocation{
				Name:      string(c.ID),
				Longitude: c.Origin.Lng,
				Latitude:  c.Origin.Lat,
			})
		}
		return nil
	})
	return err
}
