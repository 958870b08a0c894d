// internal/services/budget.go
package services

import (
	"errors"
	"time"

	"mercury-erp/models"

	"gorm.io/gorm"
)

// BudgetImpact - рекомендательный результат сопоставления строки счета с
// бюджетом. Превышение бюджета никогда не блокирует проводку, оно только
// возвращается вызывающему как предупреждение.
type BudgetImpact struct {
	BudgetID          uint    `json:"budgetId"`
	AnalyticAccountID uint    `json:"analyticAccountId"`
	Amount            float64 `json:"amount"`
	BudgetedAmount    float64 `json:"budgetedAmount"`
	IsOverBudget      bool    `json:"isOverBudget"`
}

// MatchBudget находит подтвержденный бюджет аналитического счета, интервал
// которого содержит дату. По построению таких бюджетов не более одного
// (см. ConfirmBudget); отсутствие бюджета - не ошибка, возвращается nil.
// Сравнение дат строгое по границам интервала: день за пределами
// [StartDate, EndDate] не попадает.
func MatchBudget(tx *gorm.DB, analyticAccountID uint, date time.Time) (*models.Budget, error) {
	var budget models.Budget
	err := tx.Where("analytic_account_id = ? AND status = ?", analyticAccountID, models.BudgetConfirmed).
		Where("start_date <= ? AND end_date >= ?", date, date).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &budget, nil
}

// CollectBudgetImpacts собирает бюджетные предупреждения по строкам счета,
// несущим аналитический счет. Строки без бюджета пропускаются.
func CollectBudgetImpacts(tx *gorm.DB, inv *models.Invoice) ([]BudgetImpact, error) {
	impacts := make([]BudgetImpact, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		if line.AnalyticAccountID == nil {
			continue
		}
		budget, err := MatchBudget(tx, *line.AnalyticAccountID, inv.InvoiceDate)
		if err != nil {
			return nil, err
		}
		if budget == nil {
			continue
		}
		impacts = append(impacts, BudgetImpact{
			BudgetID:          budget.ID,
			AnalyticAccountID: *line.AnalyticAccountID,
			Amount:            line.Subtotal,
			BudgetedAmount:    budget.BudgetedAmount,
			IsOverBudget:      line.Subtotal > budget.BudgetedAmount,
		})
	}
	return impacts, nil
}

// AchievedPercent - процент освоения бюджета для отображения.
// При нулевом плане процент не определен, возвращаем 0 вместо деления на ноль.
func AchievedPercent(actual, budgeted float64) float64 {
	if budgeted == 0 {
		return 0
	}
	return actual / budgeted * 100
}

// ActualForBudget считает фактическое освоение бюджета: сумму подытогов строк
// проведенных счетов поставщиков с тем же аналитическим счетом и датой внутри
// интервала бюджета.
func ActualForBudget(tx *gorm.DB, budget *models.Budget) (float64, error) {
	var actual float64
	err := tx.Model(&models.InvoiceLine{}).
		Joins("JOIN invoices ON invoices.id = invoice_lines.invoice_id").
		Where("invoice_lines.analytic_account_id = ?", budget.AnalyticAccountID).
		Where("invoices.status = ? AND invoices.type = ?", models.InvoicePosted, models.InvoiceVendorBill).
		Where("invoices.invoice_date BETWEEN ? AND ?", budget.StartDate, budget.EndDate).
		Where("invoices.deleted_at IS NULL AND invoice_lines.deleted_at IS NULL").
		Select("coalesce(sum(invoice_lines.subtotal), 0)").
		Scan(&actual).Error
	return actual, err
}
