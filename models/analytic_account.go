package models

import "gorm.io/gorm"

// Статусы аналитического счета (центра затрат).
const (
	AnalyticDraft     = "DRAFT"
	AnalyticConfirmed = "CONFIRMED"
	AnalyticArchived  = "ARCHIVED"
)

// AnalyticAccount - центр затрат. Дерево задается через ParentID;
// счет не может оказаться собственным предком, проверка выполняется
// при каждой смене родителя.
type AnalyticAccount struct {
	gorm.Model
	// Код глобально уникален; проверка выполняется в ядре при записи и
	// повторно при подтверждении, черновики могут временно конфликтовать.
	Code     string           `json:"code" gorm:"index;not null"`
	Name     string           `json:"name" gorm:"not null"`
	ParentID *uint            `json:"parentId"`
	Parent   *AnalyticAccount `json:"-" gorm:"foreignKey:ParentID"`
	Status   string           `json:"status" gorm:"default:'DRAFT'"`
}
