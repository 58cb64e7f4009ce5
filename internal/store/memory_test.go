package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"xc-athletes/internal/store"
)

func TestMemory_MirrorsSQLiteSemantics(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	id, err := m.InsertAthlete(ctx, athlete("5", "408", 1000, "2021", "m1"))
	require.NoError(t, err)
	_, err = m.InsertAthlete(ctx, athlete("6", "408", 1100, "2021", "m1"))
	require.NoError(t, err)

	require.NoError(t, m.UpdateAthlete(ctx, id, athlete("5", "", 995, "2022", "m9")))
	found, err := m.FindAthlete(ctx, "5")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, 995.0, found[0].Record.PersonalBest5k)
	require.Equal(t, "408", found[0].Record.SchoolID)
	require.Equal(t, "2022", found[0].Record.Results[0].Season)

	err = m.UpdateAthlete(ctx, "missing", athlete("5", "", 1, "2022", "m9"))
	require.True(t, errors.Is(err, store.ErrNotFound))

	_, err = m.InsertAthlete(ctx, athlete("", "", 1, "2022", "m9"))
	require.Error(t, err)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "Runner 5", snap[0].Name)
	require.Equal(t, 2, m.Len())
}
