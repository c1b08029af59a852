package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionHandleNaming(t *testing.T) {
	assert.Equal(t, "project_abc-123", CollectionHandle("abc-123"))
}

func TestFakeGatewayUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	gw := NewFakeGateway()
	handle, err := gw.CreateCollection(ctx, "p1", 3)
	require.NoError(t, err)

	err = gw.Upsert(ctx, handle, []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, DocumentID: "d1", ChunkIndex: 1},
		{ID: "b", Vector: []float32{1, 0, 0}, DocumentID: "d1", ChunkIndex: 0},
	})
	require.NoError(t, err)

	matches, err := gw.Search(ctx, handle, []float32{1, 0, 0}, 5, 0.1)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	// equal scores tie-break to the lower chunk_index first.
	assert.Equal(t, "b", matches[0].ID)
	assert.Equal(t, "a", matches[1].ID)
}

func TestFakeGatewayDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	gw := NewFakeGateway()
	handle, _ := gw.CreateCollection(ctx, "p1", 3)
	_ = gw.Upsert(ctx, handle, []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, DocumentID: "d1"},
		{ID: "b", Vector: []float32{1, 0, 0}, DocumentID: "d2"},
	})

	require.NoError(t, gw.DeleteByDocument(ctx, handle, "d1"))
	stats, err := gw.Stats(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.PointsCount)
}

func TestFakeGatewayScoreThresholdExcludesLowMatches(t *testing.T) {
	ctx := context.Background()
	gw := NewFakeGateway()
	handle, _ := gw.CreateCollection(ctx, "p1", 3)
	_ = gw.Upsert(ctx, handle, []Point{
		{ID: "a", Vector: []float32{0, 1, 0}, DocumentID: "d1"},
	})

	matches, err := gw.Search(ctx, handle, []float32{1, 0, 0}, 5, 0.4)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
