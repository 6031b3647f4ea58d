package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"github.com/anime-shed/leaf-health-go/pkg/models"
)

const createAnalysesTable = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    filename TEXT NOT NULL,
    model_id TEXT NOT NULL,
    predicted_class TEXT NOT NULL,
    confidence REAL NOT NULL,
    health_status TEXT NOT NULL,
    damage_percentage INTEGER NOT NULL,
    severity_level TEXT NOT NULL,
    leaf_area_index TEXT NOT NULL,
    detected_disease TEXT,
    heuristic_backend TEXT NOT NULL,
    duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

const selectAnalysisColumns = `id, created_at, filename, model_id, predicted_class, confidence,
    health_status, damage_percentage, severity_level, leaf_area_index, detected_disease,
    heuristic_backend, duration_ms`

// SQLiteAnalysisRepository stores the audit log in SQLite.
type SQLiteAnalysisRepository struct {
	db *sql.DB
}

// NewSQLiteAnalysisRepository opens dsn, creating the parent directory and
// the schema when missing.
func NewSQLiteAnalysisRepository(dsn string) (*SQLiteAnalysisRepository, error) {
	dbPath := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(dbPath, "?"); idx != -1 {
		dbPath = dbPath[:idx]
	}
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	if !strings.Contains(dsn, "_busy_timeout") {
		if strings.Contains(dsn, "?") {
			dsn += "&_busy_timeout=5000"
		} else {
			dsn += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createAnalysesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating analyses table: %w", err)
	}
	return &SQLiteAnalysisRepository{db: db}, nil
}

func (r *SQLiteAnalysisRepository) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	prepareRecord(record)

	var disease sql.NullString
	if record.DetectedDisease != nil {
		disease = sql.NullString{String: *record.DetectedDisease, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO analyses (`+selectAnalysisColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		record.Filename,
		record.ModelID,
		record.PredictedClass,
		record.Confidence,
		record.HealthStatus,
		record.DamagePercentage,
		record.SeverityLevel,
		record.LeafAreaIndex,
		disease,
		record.HeuristicBackend,
		record.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("%w: insert analysis: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *SQLiteAnalysisRepository) GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectAnalysisColumns+` FROM analyses WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get analysis: %v", ErrRepositoryUnavailable, err)
	}
	return rec, nil
}

func (r *SQLiteAnalysisRepository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectAnalysisColumns+` FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		normaliseLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list analyses: %v", ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var out []*models.AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan analysis: %v", ErrRepositoryUnavailable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list analyses: %v", ErrRepositoryUnavailable, err)
	}
	return out, nil
}

func (r *SQLiteAnalysisRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*models.AnalysisRecord, error) {
	var (
		rec       models.AnalysisRecord
		createdAt string
		disease   sql.NullString
	)
	err := s.Scan(
		&rec.ID,
		&createdAt,
		&rec.Filename,
		&rec.ModelID,
		&rec.PredictedClass,
		&rec.Confidence,
		&rec.HealthStatus,
		&rec.DamagePercentage,
		&rec.SeverityLevel,
		&rec.LeafAreaIndex,
		&disease,
		&rec.HeuristicBackend,
		&rec.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if disease.Valid {
		d := disease.String
		rec.DetectedDisease = &d
	}
	return &rec, nil
}
