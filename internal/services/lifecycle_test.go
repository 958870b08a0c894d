package services

import (
	"testing"

	"mercury-erp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTables(t *testing.T) {
	cases := []struct {
		family, from, to string
		allowed          bool
	}{
		{FamilyOrder, models.OrderDraft, models.OrderConfirmed, true},
		{FamilyOrder, models.OrderConfirmed, models.OrderCancelled, true},
		{FamilyOrder, models.OrderDraft, models.OrderCancelled, false},
		{FamilyOrder, models.OrderConfirmed, models.OrderConfirmed, false},
		{FamilyInvoice, models.InvoiceDraft, models.InvoicePosted, true},
		{FamilyInvoice, models.InvoicePosted, models.InvoiceDraft, false},
		{FamilyBudget, models.BudgetDraft, models.BudgetConfirmed, true},
		{FamilyBudget, models.BudgetConfirmed, models.BudgetArchived, true},
		{FamilyBudget, models.BudgetConfirmed, models.BudgetRevised, true},
		{FamilyBudget, models.BudgetDraft, models.BudgetArchived, false},
		{FamilyBudget, models.BudgetRevised, models.BudgetConfirmed, false},
		{FamilyAccount, models.AnalyticDraft, models.AnalyticConfirmed, true},
		{FamilyAccount, models.AnalyticDraft, models.AnalyticArchived, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, TransitionAllowed(tc.family, tc.from, tc.to),
			"%s: %s -> %s", tc.family, tc.from, tc.to)
	}
}

func TestConfirmPurchaseOrder(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")

	order := &models.PurchaseOrder{Reference: "PO-000001", PartnerID: vendor.ID, Status: models.OrderDraft}
	require.NoError(t, db.Create(order).Error)

	confirmed, err := ConfirmPurchaseOrder(db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, confirmed.Status)

	// Повторное подтверждение отклоняется
	_, err = ConfirmPurchaseOrder(db, order.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Из CONFIRMED можно только в CANCELLED
	cancelled, err := CancelPurchaseOrder(db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	_, err = CancelPurchaseOrder(db, order.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmOrderNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := ConfirmSalesOrder(db, 777)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostInvoiceRequiresAnalyticOnEveryLine(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")

	inv := &models.Invoice{
		Reference:   "BILL-TEST-1",
		Type:        models.InvoiceVendorBill,
		PartnerID:   vendor.ID,
		InvoiceDate: date(2025, 3, 10),
		Status:      models.InvoiceDraft,
		TotalAmount: 300,
		Lines: []models.InvoiceLine{
			{Description: "строка 1", Subtotal: 100, AnalyticAccountID: &acc.ID},
			{Description: "строка 2", Subtotal: 100},
			{Description: "строка 3", Subtotal: 100},
		},
	}
	require.NoError(t, db.Create(inv).Error)

	_, err := PostInvoice(db, inv.ID, 1)
	require.ErrorIs(t, err, ErrValidationFailed)
	// В сообщении - точное число строк-нарушителей
	assert.Contains(t, err.Error(), "2")

	// Состояние не изменилось
	var reloaded models.Invoice
	require.NoError(t, db.First(&reloaded, inv.ID).Error)
	assert.Equal(t, models.InvoiceDraft, reloaded.Status)
	assert.Nil(t, reloaded.JournalEntryID)
}

func TestPostInvoiceTwiceFails(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")

	inv := createDraftBill(t, db, vendor, 500, &acc.ID)
	_, err := PostInvoice(db, inv.ID, 1)
	require.NoError(t, err)

	_, err = PostInvoice(db, inv.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Проводка создана ровно одна
	var entries int64
	require.NoError(t, db.Model(&models.JournalEntry{}).
		Where("source_type = ? AND source_id = ?", models.JournalSourceInvoice, inv.ID).
		Count(&entries).Error)
	assert.EqualValues(t, 1, entries)
}

func TestConfirmBudgetRejectsOverlap(t *testing.T) {
	db := setupTestDB(t)
	acc := createConfirmedAccount(t, db, "MKT")

	first := &models.Budget{
		AnalyticAccountID: acc.ID,
		StartDate:         date(2025, 1, 1),
		EndDate:           date(2025, 6, 30),
		BudgetedAmount:    10000,
		Status:            models.BudgetDraft,
	}
	require.NoError(t, db.Create(first).Error)
	_, err := ConfirmBudget(db, first.ID)
	require.NoError(t, err)

	// Пересекающийся интервал того же счета
	second := &models.Budget{
		AnalyticAccountID: acc.ID,
		StartDate:         date(2025, 6, 1),
		EndDate:           date(2025, 12, 31),
		BudgetedAmount:    5000,
		Status:            models.BudgetDraft,
	}
	require.NoError(t, db.Create(second).Error)
	_, err = ConfirmBudget(db, second.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// Непересекающийся проходит
	require.NoError(t, db.Model(second).Updates(map[string]interface{}{
		"start_date": date(2025, 7, 1),
	}).Error)
	_, err = ConfirmBudget(db, second.ID)
	assert.NoError(t, err)
}

func TestReviseBudget(t *testing.T) {
	db := setupTestDB(t)
	acc := createConfirmedAccount(t, db, "HR")

	budget := &models.Budget{
		Name:              "HR 2025",
		AnalyticAccountID: acc.ID,
		StartDate:         date(2025, 1, 1),
		EndDate:           date(2025, 12, 31),
		BudgetedAmount:    20000,
		Status:            models.BudgetConfirmed,
	}
	require.NoError(t, db.Create(budget).Error)

	revision, err := ReviseBudget(db, budget.ID, ReviseBudgetInput{
		StartDate:      budget.StartDate,
		EndDate:        budget.EndDate,
		BudgetedAmount: 25000,
	}, 7)
	require.NoError(t, err)

	assert.Equal(t, models.BudgetDraft, revision.Status)
	require.NotNil(t, revision.RevisionOfID)
	assert.Equal(t, budget.ID, *revision.RevisionOfID)
	assert.Equal(t, "HR 2025", revision.Name)

	var original models.Budget
	require.NoError(t, db.First(&original, budget.ID).Error)
	assert.Equal(t, models.BudgetRevised, original.Status)

	// Черновик ревизовать нельзя
	_, err = ReviseBudget(db, revision.ID, ReviseBudgetInput{}, 7)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmAnalyticAccountDuplicateCode(t *testing.T) {
	db := setupTestDB(t)

	existing := createConfirmedAccount(t, db, "OPS")

	dup := &models.AnalyticAccount{Code: "OPS", Name: "Дубль", Status: models.AnalyticDraft}
	require.NoError(t, db.Create(dup).Error)

	_, err := ConfirmAnalyticAccount(db, dup.ID)
	require.ErrorIs(t, err, ErrConflict)

	// Отказ произошел до смены состояния
	var reloaded models.AnalyticAccount
	require.NoError(t, db.First(&reloaded, dup.ID).Error)
	assert.Equal(t, models.AnalyticDraft, reloaded.Status)
	_ = existing
}

func TestAncestorCycleCheck(t *testing.T) {
	db := setupTestDB(t)

	root := &models.AnalyticAccount{Code: "A", Name: "A"}
	require.NoError(t, db.Create(root).Error)
	child := &models.AnalyticAccount{Code: "A1", Name: "A1", ParentID: &root.ID}
	require.NoError(t, db.Create(child).Error)
	grandchild := &models.AnalyticAccount{Code: "A11", Name: "A11", ParentID: &child.ID}
	require.NoError(t, db.Create(grandchild).Error)

	// Корню нельзя назначить внука родителем
	err := EnsureNoAncestorCycle(db, root.ID, &grandchild.ID)
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Сам себе родителем
	err = EnsureNoAncestorCycle(db, child.ID, &child.ID)
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Валидная перестановка
	other := &models.AnalyticAccount{Code: "B", Name: "B"}
	require.NoError(t, db.Create(other).Error)
	assert.NoError(t, EnsureNoAncestorCycle(db, grandchild.ID, &other.ID))
	assert.NoError(t, EnsureNoAncestorCycle(db, child.ID, nil))
}
