package database

import (
	"gorm.io/gorm"
)

// NotDeleted excludes soft-deleted rows. Every default repository query
// goes through this scope; only admin recovery paths skip it.
func NotDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// Paginate applies pagination to a GORM query. Non-positive values leave
// the query unpaged so internal callers can fetch everything.
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page <= 0 || pageSize <= 0 {
			return db
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
