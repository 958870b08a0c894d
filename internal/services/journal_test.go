package services

import (
	"testing"

	"mercury-erp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInvoiceEntryVendorBill(t *testing.T) {
	acc1, acc2 := uint(10), uint(20)
	inv := &models.Invoice{
		Reference:   "BILL-000007",
		Type:        models.InvoiceVendorBill,
		InvoiceDate: date(2025, 3, 10),
		TotalAmount: 850,
		Lines: []models.InvoiceLine{
			{Description: "Хостинг", Subtotal: 600, AnalyticAccountID: &acc1},
			{Description: "Домены", Subtotal: 250, AnalyticAccountID: &acc2},
		},
	}

	entry := BuildInvoiceEntry(inv)
	require.Len(t, entry.Lines, 3)
	assert.True(t, EntryBalanced(entry))
	assert.InDelta(t, 850, entry.TotalDebit, Epsilon)
	assert.InDelta(t, 850, entry.TotalCredit, Epsilon)

	// Дебеты построчно несут аналитику строк
	assert.Equal(t, models.AccountExpense, entry.Lines[0].Account)
	assert.InDelta(t, 600, entry.Lines[0].Debit, Epsilon)
	assert.Equal(t, &acc1, entry.Lines[0].AnalyticAccountID)
	assert.Equal(t, &acc2, entry.Lines[1].AnalyticAccountID)

	// Один кредит кредиторки на общую сумму
	last := entry.Lines[2]
	assert.Equal(t, models.AccountPayable, last.Account)
	assert.InDelta(t, 850, last.Credit, Epsilon)
}

func TestBuildInvoiceEntryCustomerInvoiceMirrored(t *testing.T) {
	acc := uint(5)
	inv := &models.Invoice{
		Reference:   "INV-000001",
		Type:        models.InvoiceCustomerInvoice,
		TotalAmount: 300,
		Lines: []models.InvoiceLine{
			{Description: "Подписка", Subtotal: 300, AnalyticAccountID: &acc},
		},
	}

	entry := BuildInvoiceEntry(inv)
	require.Len(t, entry.Lines, 2)
	assert.True(t, EntryBalanced(entry))
	assert.Equal(t, models.AccountIncome, entry.Lines[0].Account)
	assert.InDelta(t, 300, entry.Lines[0].Credit, Epsilon)
	assert.Equal(t, models.AccountReceivable, entry.Lines[1].Account)
	assert.InDelta(t, 300, entry.Lines[1].Debit, Epsilon)
}

func TestBuildInvoiceEntryRoundsFloatTails(t *testing.T) {
	acc := uint(1)
	inv := &models.Invoice{
		Type: models.InvoiceVendorBill,
		Lines: []models.InvoiceLine{
			{Subtotal: 0.1, AnalyticAccountID: &acc},
			{Subtotal: 0.2, AnalyticAccountID: &acc},
		},
	}
	entry := BuildInvoiceEntry(inv)
	assert.True(t, EntryBalanced(entry))
	assert.InDelta(t, 0.3, entry.TotalDebit, 1e-9)
}

func TestBuildPaymentEntryByMethod(t *testing.T) {
	out := &models.Payment{Reference: "PAY-OUT-000003", Type: models.PaymentOutbound, Method: models.MethodBank, Amount: 1200}
	entry := BuildPaymentEntry(out)
	require.Len(t, entry.Lines, 2)
	assert.True(t, EntryBalanced(entry))
	assert.Equal(t, models.AccountPayable, entry.Lines[0].Account)
	assert.InDelta(t, 1200, entry.Lines[0].Debit, Epsilon)
	assert.Equal(t, models.AccountBank, entry.Lines[1].Account)

	// Наличный входящий платеж: дебет кассы, кредит дебиторки
	in := &models.Payment{Reference: "PAY-IN-000001", Type: models.PaymentInbound, Method: models.MethodCash, Amount: 500}
	entry = BuildPaymentEntry(in)
	assert.True(t, EntryBalanced(entry))
	assert.Equal(t, models.AccountCash, entry.Lines[0].Account)
	assert.InDelta(t, 500, entry.Lines[0].Debit, Epsilon)
	assert.Equal(t, models.AccountReceivable, entry.Lines[1].Account)
}

func TestPersistEntryRejectsUnbalanced(t *testing.T) {
	db := setupTestDB(t)
	entry := &models.JournalEntry{
		SourceType: models.JournalSourceInvoice,
		SourceID:   1,
		Lines: []models.JournalLine{
			{Account: models.AccountExpense, Debit: 100},
			{Account: models.AccountPayable, Credit: 90},
		},
	}
	err := persistEntry(db, entry, 1)
	require.ErrorIs(t, err, ErrValidationFailed)

	var count int64
	require.NoError(t, db.Model(&models.JournalEntry{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestPostInvoiceStoresEntryReference(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")
	inv := createDraftBill(t, db, vendor, 450, &acc.ID)

	res, err := PostInvoice(db, inv.ID, 3)
	require.NoError(t, err)

	require.NotNil(t, res.Invoice.JournalEntryID)
	assert.Equal(t, res.JournalEntry.ID, *res.Invoice.JournalEntryID)
	assert.Equal(t, "JE-000001", res.JournalEntry.Reference)
	assert.EqualValues(t, 3, res.JournalEntry.CreatedByID)
}
