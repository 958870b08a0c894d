package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы бюджета. CONFIRMED бюджет неизменяем; правки идут только через
// ревизию: создается новый DRAFT со ссылкой RevisionOfID, исходный
// переводится в REVISED.
const (
	BudgetDraft     = "DRAFT"
	BudgetConfirmed = "CONFIRMED"
	BudgetRevised   = "REVISED"
	BudgetArchived  = "ARCHIVED"
)

// Budget - плановая сумма по аналитическому счету на интервал дат.
type Budget struct {
	gorm.Model
	Name              string          `json:"name"`
	AnalyticAccountID uint            `json:"analyticAccountId" gorm:"index;not null"`
	AnalyticAccount   AnalyticAccount `json:"analyticAccount" gorm:"foreignKey:AnalyticAccountID"`
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	BudgetedAmount    float64         `json:"budgetedAmount" gorm:"type:numeric(12,2)"`
	Status            string          `json:"status" gorm:"default:'DRAFT'"`
	RevisionOfID      *uint           `json:"revisionOfId"`
	CreatedByID       uint            `json:"createdById"`
}
