// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listing-engine/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Dir: filepath.Join(t.TempDir(), "data")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func sampleMarket() types.MarketContext {
	price := 199.9
	return types.MarketContext{
		Trends:     []string{"ventilador de teto", "ventilador silencioso"},
		Attributes: []types.AttributeDef{{ID: "BRAND", Name: "Marca", Required: true}},
		Competitors: []types.CompetitorSnapshot{{
			ItemID:     "MLB123",
			Title:      "Ventilador Arno",
			Price:      &price,
			Attributes: map[string]string{"Marca": "Arno"},
		}},
		CollectedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSaveGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "MLB1246", sampleMarket())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleMarket(), got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Latest(context.Background(), "MLB1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleMarket()
	older.Trends = []string{"old"}
	_, err := s.Save(ctx, "MLB1246", older)
	require.NoError(t, err)
	otherID, err := s.Save(ctx, "MLB8477", sampleMarket())
	require.NoError(t, err)
	newestID, err := s.Save(ctx, "MLB1246", sampleMarket())
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "MLB1246")
	require.NoError(t, err)
	assert.Equal(t, sampleMarket().Trends, latest.Trends)

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, newestID, infos[0].ID)
	assert.Equal(t, otherID, infos[1].ID)
	assert.Equal(t, "MLB1246", infos[2].CategoryID)
	assert.Equal(t, 1, infos[2].Trends)
	assert.Equal(t, 1, infos[0].Competitors)
	assert.True(t, infos[0].CreatedAt.After(infos[1].CreatedAt))
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	id, err := s.Save(context.Background(), "C1", sampleMarket())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(context.Background(), id)
	assert.NoError(t, err)
}
