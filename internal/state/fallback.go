package state

import "go.uber.org/zap"

// OpenStore opens and migrates the SQLite database at path. When that
// fails, or when inMemory is set, it returns an in-memory store so the
// caller keeps working without persistence.
func OpenStore(path string, inMemory bool, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if inMemory {
		return NewMemory()
	}
	db, err := OpenMigrated(path)
	if err != nil {
		logger.Warn("sqlite store unavailable, using in-memory store",
			zap.String("path", path), zap.Error(err))
		return NewMemory()
	}
	return db
}
