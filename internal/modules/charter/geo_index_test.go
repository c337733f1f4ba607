package charter

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charterhub/internal/testutil"
	"charterhub/internal/types"
)

func TestGeoIndex_Redis(t *testing.T) {
	rdb := testutil.Redis(t)
	ctx := context.Background()
	key := "charterhub:test:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), key) })
	index := NewGeoIndex(rdb, key)

	require.NoError(t, index.Add(ctx, "c_near", types.Point{Lat: -34.76, Lng: -58.40}))
	require.NoError(t, index.Add(ctx, "c_far", types.Point{Lat: -34.60, Lng: -58.38}))

	ids, err := index.Search(ctx, pickup, 5)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"c_near"}, ids)

	ids, err = index.Search(ctx, pickup, 30)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"c_near", "c_far"}, ids)

	require.NoError(t, index.Remove(ctx, "c_near"))
	ids, err = index.Search(ctx, pickup, 30)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"c_far"}, ids)

	require.NoError(t, index.Reset(ctx, []Charter{{ID: "c_only", Origin: types.Point{Lat: -34.77, Lng: -58.39}}}))
	ids, err = index.Search(ctx, pickup, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"c_only"}, ids)
}
