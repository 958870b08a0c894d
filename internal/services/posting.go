// internal/services/posting.go
package services

import (
	"errors"

	"mercury-erp/models"

	"gorm.io/gorm"
)

// PostInvoiceResult - итог проводки счета: сам счет, созданная проводка и
// рекомендательные бюджетные предупреждения.
type PostInvoiceResult struct {
	Invoice       *models.Invoice      `json:"invoice"`
	JournalEntry  *models.JournalEntry `json:"journalEntry"`
	BudgetImpacts []BudgetImpact       `json:"budgetImpact"`
}

// BudgetWarnings возвращает только превышения - для поля budgetWarnings ответа.
func (r *PostInvoiceResult) BudgetWarnings() []BudgetImpact {
	warnings := make([]BudgetImpact, 0)
	for _, impact := range r.BudgetImpacts {
		if impact.IsOverBudget {
			warnings = append(warnings, impact)
		}
	}
	return warnings
}

// PostInvoice проводит счет: DRAFT -> POSTED.
//
// Порядок внутри одной транзакции: повторная проверка статуса под блокировкой
// строки, проверка аналитики на каждой строке, построение сбалансированной
// проводки, сбор бюджетных предупреждений, смена статуса. Проводка создается
// ровно один раз - повторный вызов упадет на проверке статуса.
func PostInvoice(tx *gorm.DB, invoiceID uint, actorID uint) (*PostInvoiceResult, error) {
	var inv models.Invoice
	if err := lockForUpdate(tx).First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("счет %d не найден", invoiceID)
		}
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", inv.ID).Order("id asc").Find(&inv.Lines).Error; err != nil {
		return nil, err
	}

	if err := EnsureTransition(FamilyInvoice, inv.Status, models.InvoicePosted); err != nil {
		return nil, err
	}
	if len(inv.Lines) == 0 {
		return nil, Validationf("счет %s нельзя провести без строк", inv.Reference)
	}

	// Каждая строка обязана нести аналитический счет; в отказе сообщаем
	// точное число строк-нарушителей.
	missing := 0
	for _, line := range inv.Lines {
		if line.AnalyticAccountID == nil {
			missing++
		}
	}
	if missing > 0 {
		return nil, Validationf("проводка счета %s отклонена: строк без аналитического счета: %d", inv.Reference, missing)
	}

	entry := BuildInvoiceEntry(&inv)
	if err := persistEntry(tx, entry, actorID); err != nil {
		return nil, err
	}

	impacts, err := CollectBudgetImpacts(tx, &inv)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":           models.InvoicePosted,
		"payment_state":    models.PaymentStateNotPaid,
		"journal_entry_id": entry.ID,
		"posted_by_id":     actorID,
	}
	if err := tx.Model(&inv).Updates(updates).Error; err != nil {
		return nil, err
	}
	inv.Status = models.InvoicePosted
	inv.PaymentState = models.PaymentStateNotPaid
	inv.JournalEntryID = &entry.ID
	inv.PostedByID = &actorID

	return &PostInvoiceResult{Invoice: &inv, JournalEntry: entry, BudgetImpacts: impacts}, nil
}
