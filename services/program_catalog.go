package services

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"dost-pmns-api/models"

	"gorm.io/gorm"
)

// Program rows only change through seeding, so reads are served from memory
// per connection pool.
var (
	programCacheMu  sync.RWMutex
	programCache    = map[*sql.DB]*programCacheEntry{}
	programCacheTTL = 5 * time.Minute
)

type programCacheEntry struct {
	programs  []models.Program
	byCode    map[string]models.Program
	fetchedAt time.Time
}

func (e *programCacheEntry) fresh() bool {
	return e != nil && time.Since(e.fetchedAt) < programCacheTTL
}

func programCacheKey(db *gorm.DB) *sql.DB {
	sqlDB, err := db.DB()
	if err != nil {
		return nil
	}
	return sqlDB
}

// loadPrograms must not be called with a transaction handle.
func loadPrograms(db *gorm.DB, force bool) (*programCacheEntry, error) {
	key := programCacheKey(db)

	programCacheMu.RLock()
	cached := programCache[key]
	programCacheMu.RUnlock()
	if !force && cached.fresh() {
		return cached, nil
	}

	programCacheMu.Lock()
	defer programCacheMu.Unlock()

	if cached := programCache[key]; !force && cached.fresh() {
		return cached, nil
	}

	var rows []models.Program
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load programs: %w", err)
	}

	byCode := make(map[string]models.Program, len(rows))
	for _, p := range rows {
		byCode[p.Code] = p
	}
	entry := &programCacheEntry{programs: rows, byCode: byCode, fetchedAt: time.Now()}
	if key != nil {
		programCache[key] = entry
	}
	return entry, nil
}

// ClearProgramCache invalidates the cached programs of every database.
func ClearProgramCache() {
	programCacheMu.Lock()
	defer programCacheMu.Unlock()
	programCache = map[*sql.DB]*programCacheEntry{}
}

// programByCode returns the stored program row, refreshing the cache once on
// a miss. A nil result with a nil error means the program was never seeded.
func programByCode(db *gorm.DB, code string) (*models.Program, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	entry, err := loadPrograms(db, false)
	if err != nil {
		return nil, err
	}
	if p, ok := entry.byCode[code]; ok {
		return &p, nil
	}

	entry, err = loadPrograms(db, true)
	if err != nil {
		return nil, err
	}
	if p, ok := entry.byCode[code]; ok {
		return &p, nil
	}
	return nil, nil
}
