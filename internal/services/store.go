// internal/services/store.go
package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate навешивает SELECT ... FOR UPDATE на запрос. SQLite (тестовое
// хранилище) этот синтаксис не понимает и сериализует писателей сам, поэтому
// для него блокировка опускается.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
