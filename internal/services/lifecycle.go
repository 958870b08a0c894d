// internal/services/lifecycle.go
//
// Машины состояний документов. Каждый переход - одна атомарная операция:
// охранные проверки выполняются внутри той же транзакции, что и смена статуса,
// а не до нее.
package services

import (
	"errors"
	"time"

	"mercury-erp/models"

	"gorm.io/gorm"
)

// Семейства документов для таблиц переходов.
const (
	FamilyOrder   = "order"   // заказы закупки и продажи
	FamilyInvoice = "invoice" // счета поставщиков и покупателей
	FamilyBudget  = "budget"
	FamilyAccount = "analytic_account"
)

// Таблицы допустимых переходов. Перепрыгивание статусов запрещено:
// разрешено только то, что перечислено явно.
var transitions = map[string]map[string][]string{
	FamilyOrder: {
		models.OrderDraft:     {models.OrderConfirmed},
		models.OrderConfirmed: {models.OrderCancelled},
	},
	FamilyInvoice: {
		models.InvoiceDraft: {models.InvoicePosted},
	},
	FamilyBudget: {
		models.BudgetDraft:     {models.BudgetConfirmed},
		models.BudgetConfirmed: {models.BudgetRevised, models.BudgetArchived},
	},
	FamilyAccount: {
		models.AnalyticDraft:     {models.AnalyticConfirmed},
		models.AnalyticConfirmed: {models.AnalyticArchived},
	},
}

// TransitionAllowed сообщает, допустим ли переход from -> to для семейства.
func TransitionAllowed(family, from, to string) bool {
	for _, next := range transitions[family][from] {
		if next == to {
			return true
		}
	}
	return false
}

// EnsureTransition возвращает типизированный отказ, если переход недопустим.
func EnsureTransition(family, from, to string) error {
	if !TransitionAllowed(family, from, to) {
		return InvalidStatef("переход %s -> %s недопустим для документа типа %s", from, to, family)
	}
	return nil
}

// EnsureEditable проверяет, что документ можно редактировать: правка полей и
// замена строк разрешены только в статусе DRAFT.
func EnsureEditable(status string) error {
	if status != models.OrderDraft { // все семейства используют литерал "DRAFT"
		return InvalidStatef("документ в статусе %s не подлежит редактированию", status)
	}
	return nil
}

// --- Заказы ---

// ConfirmPurchaseOrder переводит заказ поставщику DRAFT -> CONFIRMED.
func ConfirmPurchaseOrder(tx *gorm.DB, orderID uint) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("заказ поставщику %d не найден", orderID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyOrder, order.Status, models.OrderConfirmed); err != nil {
		return nil, err
	}
	order.Status = models.OrderConfirmed
	if err := tx.Model(&order).Update("status", models.OrderConfirmed).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelPurchaseOrder переводит заказ CONFIRMED -> CANCELLED.
func CancelPurchaseOrder(tx *gorm.DB, orderID uint) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("заказ поставщику %d не найден", orderID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyOrder, order.Status, models.OrderCancelled); err != nil {
		return nil, err
	}
	order.Status = models.OrderCancelled
	if err := tx.Model(&order).Update("status", models.OrderCancelled).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmSalesOrder переводит заказ покупателя DRAFT -> CONFIRMED.
func ConfirmSalesOrder(tx *gorm.DB, orderID uint) (*models.SalesOrder, error) {
	var order models.SalesOrder
	if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("заказ покупателя %d не найден", orderID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyOrder, order.Status, models.OrderConfirmed); err != nil {
		return nil, err
	}
	order.Status = models.OrderConfirmed
	if err := tx.Model(&order).Update("status", models.OrderConfirmed).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelSalesOrder переводит заказ покупателя CONFIRMED -> CANCELLED.
func CancelSalesOrder(tx *gorm.DB, orderID uint) (*models.SalesOrder, error) {
	var order models.SalesOrder
	if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("заказ покупателя %d не найден", orderID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyOrder, order.Status, models.OrderCancelled); err != nil {
		return nil, err
	}
	order.Status = models.OrderCancelled
	if err := tx.Model(&order).Update("status", models.OrderCancelled).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// --- Бюджеты ---

// ConfirmBudget переводит бюджет DRAFT -> CONFIRMED.
// Пересечение интервалов двух CONFIRMED бюджетов одного аналитического счета
// запрещено: именно это делает поиск бюджета при проводке детерминированным
// ("не более одного по построению").
func ConfirmBudget(tx *gorm.DB, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := lockForUpdate(tx).First(&budget, budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("бюджет %d не найден", budgetID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyBudget, budget.Status, models.BudgetConfirmed); err != nil {
		return nil, err
	}
	if budget.EndDate.Before(budget.StartDate) {
		return nil, Validationf("дата окончания бюджета %s раньше даты начала %s",
			budget.EndDate.Format("2006-01-02"), budget.StartDate.Format("2006-01-02"))
	}

	var overlapping int64
	err := tx.Model(&models.Budget{}).
		Where("analytic_account_id = ? AND status = ? AND id <> ?",
			budget.AnalyticAccountID, models.BudgetConfirmed, budget.ID).
		Where("start_date <= ? AND end_date >= ?", budget.EndDate, budget.StartDate).
		Count(&overlapping).Error
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, Conflictf("по аналитическому счету %d уже есть подтвержденный бюджет, пересекающийся с интервалом %s - %s",
			budget.AnalyticAccountID, budget.StartDate.Format("2006-01-02"), budget.EndDate.Format("2006-01-02"))
	}

	budget.Status = models.BudgetConfirmed
	if err := tx.Model(&budget).Update("status", models.BudgetConfirmed).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

// ArchiveBudget переводит бюджет CONFIRMED -> ARCHIVED.
func ArchiveBudget(tx *gorm.DB, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := lockForUpdate(tx).First(&budget, budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("бюджет %d не найден", budgetID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyBudget, budget.Status, models.BudgetArchived); err != nil {
		return nil, err
	}
	budget.Status = models.BudgetArchived
	if err := tx.Model(&budget).Update("status", models.BudgetArchived).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

// ReviseBudgetInput - изменяемые поля ревизии бюджета.
type ReviseBudgetInput struct {
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	BudgetedAmount float64
}

// ReviseBudget создает ревизию подтвержденного бюджета: новый DRAFT со
// ссылкой RevisionOfID на исходный, исходный переводится в REVISED.
// Обе записи меняются в одной транзакции.
func ReviseBudget(tx *gorm.DB, budgetID uint, in ReviseBudgetInput, actorID uint) (*models.Budget, error) {
	var original models.Budget
	if err := lockForUpdate(tx).First(&original, budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("бюджет %d не найден", budgetID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyBudget, original.Status, models.BudgetRevised); err != nil {
		return nil, err
	}

	revision := models.Budget{
		Name:              in.Name,
		AnalyticAccountID: original.AnalyticAccountID,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		BudgetedAmount:    in.BudgetedAmount,
		Status:            models.BudgetDraft,
		RevisionOfID:      &original.ID,
		CreatedByID:       actorID,
	}
	if revision.Name == "" {
		revision.Name = original.Name
	}
	if err := tx.Create(&revision).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&original).Update("status", models.BudgetRevised).Error; err != nil {
		return nil, err
	}
	return &revision, nil
}

// --- Аналитические счета ---

// ensureUniqueAnalyticCode проверяет глобальную уникальность кода среди всех
// счетов, кроме excludeID.
func ensureUniqueAnalyticCode(tx *gorm.DB, code string, excludeID uint) error {
	var count int64
	if err := tx.Model(&models.AnalyticAccount{}).
		Where("code = ? AND id <> ?", code, excludeID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return Conflictf("код аналитического счета %q уже занят", code)
	}
	return nil
}

// EnsureNoAncestorCycle запрещает назначать счету родителя, если счет
// оказался бы собственным предком. Обход идет вверх по дереву от нового
// родителя до корня.
func EnsureNoAncestorCycle(tx *gorm.DB, accountID uint, newParentID *uint) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == accountID {
		return Validationf("аналитический счет %d не может быть собственным родителем", accountID)
	}
	currentID := *newParentID
	for {
		var parent models.AnalyticAccount
		if err := tx.Select("id", "parent_id").First(&parent, currentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("родительский аналитический счет %d не найден", currentID)
			}
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		if *parent.ParentID == accountID {
			return Validationf("назначение родителя %d создает цикл в дереве аналитических счетов", *newParentID)
		}
		currentID = *parent.ParentID
	}
}

// ConfirmAnalyticAccount переводит счет DRAFT -> CONFIRMED, повторно проверяя
// уникальность кода: отказ Conflict происходит до какой-либо смены состояния.
func ConfirmAnalyticAccount(tx *gorm.DB, accountID uint) (*models.AnalyticAccount, error) {
	var account models.AnalyticAccount
	if err := lockForUpdate(tx).First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("аналитический счет %d не найден", accountID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyAccount, account.Status, models.AnalyticConfirmed); err != nil {
		return nil, err
	}
	if err := ensureUniqueAnalyticCode(tx, account.Code, account.ID); err != nil {
		return nil, err
	}
	account.Status = models.AnalyticConfirmed
	if err := tx.Model(&account).Update("status", models.AnalyticConfirmed).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ArchiveAnalyticAccount переводит счет CONFIRMED -> ARCHIVED.
func ArchiveAnalyticAccount(tx *gorm.DB, accountID uint) (*models.AnalyticAccount, error) {
	var account models.AnalyticAccount
	if err := lockForUpdate(tx).First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("аналитический счет %d не найден", accountID)
		}
		return nil, err
	}
	if err := EnsureTransition(FamilyAccount, account.Status, models.AnalyticArchived); err != nil {
		return nil, err
	}
	account.Status = models.AnalyticArchived
	if err := tx.Model(&account).Update("status", models.AnalyticArchived).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
