package repository

import "strings"

// MemoryDSN selects the in-process audit log.
const MemoryDSN = "memory"

// Open returns the audit log for dsn: "memory" keeps records in process,
// anything else is handed to SQLite.
func Open(dsn string) (AnalysisRepository, error) {
	if strings.EqualFold(strings.TrimSpace(dsn), MemoryDSN) {
		return NewMemoryAnalysisRepository(MaxListLimit), nil
	}
	return NewSQLiteAnalysisRepository(dsn)
}
