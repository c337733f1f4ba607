package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charterhub/internal/apperr"
	"charterhub/internal/testutil"
	"charterhub/internal/types"
)

func TestStore_Get(t *testing.T) {
	db := testutil.DB(t)
	store := NewStore(db)
	ctx := context.Background()

	testutil.InsertUser(t, db, testutil.UserRow{ID: "u_alice", Credits: 900})
	testutil.InsertUser(t, db, testutil.UserRow{ID: "c_bruno", Role: "charter", Verified: true, Origin: &[2]float64{-34.76, -58.40}})
	testutil.InsertUser(t, db, testutil.UserRow{ID: "u_gone", Deleted: true})

	u, err := store.Get(ctx, "u_alice")
	require.NoError(t, err)
	assert.Equal(t, types.Credits(900), u.Credits)
	assert.Equal(t, RoleUser, u.Role)
	assert.Nil(t, u.Origin)

	c, err := store.Get(ctx, "c_bruno")
	require.NoError(t, err)
	assert.True(t, c.IsCharter())
	assert.True(t, c.IsVerified())
	require.NotNil(t, c.Origin)
	assert.Equal(t, types.Point{Lat: -34.76, Lng: -58.40}, *c.Origin)

	_, err = store.Get(ctx, "u_gone")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = store.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	byEmail, err := store.GetByEmail(ctx, "U_ALICE@charterhub.test")
	require.NoError(t, err)
	assert.Equal(t, types.ID("u_alice"), byEmail.ID)
}
