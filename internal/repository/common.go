package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/anime-shed/leaf-health-go/pkg/models"
)

// DefaultListLimit applies when ListRecent is called with limit <= 0.
const DefaultListLimit = 50

// MaxListLimit caps ListRecent.
const MaxListLimit = 500

func prepareRecord(record *models.AnalysisRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

func normaliseLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func cloneRecord(r *models.AnalysisRecord) *models.AnalysisRecord {
	c := *r
	if r.DetectedDisease != nil {
		d := *r.DetectedDisease
		c.DetectedDisease = &d
	}
	return &c
}
