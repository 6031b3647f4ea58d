package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/leaf-health-go/pkg/models"
)

func sampleRecord(filename string) *models.AnalysisRecord {
	disease := "Apple Scab"
	return &models.AnalysisRecord{
		Filename:         filename,
		ModelID:          "model1",
		PredictedClass:   "apple_scab",
		Confidence:       0.82,
		HealthStatus:     "Moderately Diseased",
		DamagePercentage: 33,
		SeverityLevel:    "Moderate",
		LeafAreaIndex:    "2.4",
		DetectedDisease:  &disease,
		HeuristicBackend: "native",
		DurationMs:       42,
	}
}

func TestMemoryRepository_SaveAssignsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryAnalysisRepository(10)
	rec := sampleRecord("leaf.jpg")

	require.NoError(t, repo.SaveAnalysis(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.GetAnalysis(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestMemoryRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryAnalysisRepository(10)
	rec := sampleRecord("leaf.jpg")
	require.NoError(t, repo.SaveAnalysis(context.Background(), rec))

	got, err := repo.GetAnalysis(context.Background(), rec.ID)
	require.NoError(t, err)
	*got.DetectedDisease = "changed"
	got.Filename = "changed"

	again, err := repo.GetAnalysis(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple Scab", *again.DetectedDisease)
	assert.Equal(t, "leaf.jpg", again.Filename)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	repo := NewMemoryAnalysisRepository(10)
	_, err := repo.GetAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestMemoryRepository_ListRecentNewestFirst(t *testing.T) {
	repo := NewMemoryAnalysisRepository(10)
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.SaveAnalysis(context.Background(), sampleRecord(fmt.Sprintf("leaf%d.jpg", i))))
	}

	recs, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "leaf3.jpg", recs[0].Filename)
	assert.Equal(t, "leaf2.jpg", recs[1].Filename)

	all, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMemoryRepository_EvictsOldest(t *testing.T) {
	repo := NewMemoryAnalysisRepository(2)
	first := sampleRecord("first.jpg")
	require.NoError(t, repo.SaveAnalysis(context.Background(), first))
	require.NoError(t, repo.SaveAnalysis(context.Background(), sampleRecord("second.jpg")))
	require.NoError(t, repo.SaveAnalysis(context.Background(), sampleRecord("third.jpg")))

	_, err := repo.GetAnalysis(context.Background(), first.ID)
	assert.ErrorIs(t, err, ErrAnalysisNotFound)

	recs, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "third.jpg", recs[0].Filename)
}

func TestMemoryRepository_SaveKeepsExplicitID(t *testing.T) {
	repo := NewMemoryAnalysisRepository(10)
	rec := sampleRecord("leaf.jpg")
	rec.ID = "fixed"
	rec.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveAnalysis(context.Background(), rec))

	rec.Filename = "updated.jpg"
	require.NoError(t, repo.SaveAnalysis(context.Background(), rec))

	recs, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "updated.jpg", recs[0].Filename)
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryAnalysisRepository(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.SaveAnalysis(ctx, sampleRecord("leaf.jpg")), context.Canceled)
}

func TestNormaliseLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, normaliseLimit(0))
	assert.Equal(t, DefaultListLimit, normaliseLimit(-3))
	assert.Equal(t, 7, normaliseLimit(7))
	assert.Equal(t, MaxListLimit, normaliseLimit(MaxListLimit+1))
}

func TestOpen_Memory(t *testing.T) {
	repo, err := Open(" Memory ")
	require.NoError(t, err)
	defer repo.Close()
	_, ok := repo.(*MemoryAnalysisRepository)
	assert.True(t, ok)
}
