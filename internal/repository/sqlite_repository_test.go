package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteAnalysisRepository {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "nested", "history.db")
	repo, err := NewSQLiteAnalysisRepository(dsn)
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("sqlite3 driver requires cgo")
	}
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	rec := sampleRecord("leaf.jpg")
	require.NoError(t, repo.SaveAnalysis(ctx, rec))
	require.NotEmpty(t, rec.ID)

	got, err := repo.GetAnalysis(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.PredictedClass, got.PredictedClass)
	assert.InDelta(t, rec.Confidence, got.Confidence, 1e-9)
	assert.Equal(t, rec.DamagePercentage, got.DamagePercentage)
	assert.Equal(t, rec.LeafAreaIndex, got.LeafAreaIndex)
	require.NotNil(t, got.DetectedDisease)
	assert.Equal(t, "Apple Scab", *got.DetectedDisease)
}

func TestSQLiteRepository_NullDisease(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	rec := sampleRecord("healthy.jpg")
	rec.DetectedDisease = nil
	rec.HealthStatus = "Healthy"
	require.NoError(t, repo.SaveAnalysis(ctx, rec))

	got, err := repo.GetAnalysis(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DetectedDisease)
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := newTestSQLite(t)
	_, err := repo.GetAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestSQLiteRepository_ListRecent(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := sampleRecord(fmt.Sprintf("leaf%d.jpg", i))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveAnalysis(ctx, rec))
	}

	recs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "leaf2.jpg", recs[0].Filename)
	assert.Equal(t, "leaf1.jpg", recs[1].Filename)
}
