package models

import "gorm.io/gorm"

// Статусы правила автоаналитики. На строки срабатывают только CONFIRMED правила.
const (
	RuleDraft     = "DRAFT"
	RuleConfirmed = "CONFIRMED"
	RuleArchived  = "ARCHIVED"
)

// AutoAnalyticalRule назначает аналитический счет строке документа по
// атрибутам контрагента и товара. NULL в атрибуте означает "любое значение".
// Priority - производное поле: число заполненных атрибутов (0-4);
// оно пересчитывается целиком при каждом изменении правила.
type AutoAnalyticalRule struct {
	gorm.Model
	Name              string `json:"name"`
	PartnerTagID      *uint  `json:"partnerTagId"`
	PartnerID         *uint  `json:"partnerId"`
	ProductCategoryID *uint  `json:"productCategoryId"`
	ProductID         *uint  `json:"productId"`
	AnalyticAccountID uint   `json:"analyticAccountId" gorm:"not null"`
	Priority          int    `json:"priority"`
	Status            string `json:"status" gorm:"default:'DRAFT'"`
}
