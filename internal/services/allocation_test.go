package services

import (
	"fmt"
	"testing"

	"mercury-erp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateAndPostPaymentFullCoverage(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")

	billA := createPostedBill(t, db, vendor, 600, &acc.ID)
	billB := createPostedBill(t, db, vendor, 400, &acc.ID)

	payment, err := CreatePayment(db, CreatePaymentInput{
		Type:        models.PaymentOutbound,
		PartnerID:   vendor.ID,
		Amount:      1000,
		PaymentDate: date(2025, 3, 15),
		Allocations: []AllocationInput{
			{InvoiceID: billA.ID, Amount: 600},
			{InvoiceID: billB.ID, Amount: 400},
		},
		ActorID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentDraft, payment.Status)
	assert.Equal(t, "PAY-OUT-000001", payment.Reference)
	require.Len(t, payment.Allocations, 2)

	res, err := PostPayment(db, payment.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPosted, res.Payment.Status)

	// Проводка платежа сбалансирована: дебет 1000 / кредит 1000
	require.NotNil(t, res.JournalEntry)
	assert.InDelta(t, 1000, res.JournalEntry.TotalDebit, Epsilon)
	assert.InDelta(t, 1000, res.JournalEntry.TotalCredit, Epsilon)

	// Оба счета полностью оплачены
	for _, id := range []uint{billA.ID, billB.ID} {
		var inv models.Invoice
		require.NoError(t, db.First(&inv, id).Error)
		assert.Equal(t, models.PaymentStatePaid, inv.PaymentState)

		outstanding, err := Outstanding(db, id)
		require.NoError(t, err)
		assert.InDelta(t, 0, outstanding, Epsilon)
	}
}

func TestCreatePaymentValidationOrder(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	customer := createCustomer(t, db, "ИП Клиент")
	acc := createConfirmedAccount(t, db, "IT")
	bill := createPostedBill(t, db, vendor, 500, &acc.ID)

	// (a) роль контрагента не соответствует направлению
	_, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: customer.ID, Amount: 500,
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 500}},
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	// (a) контрагент отсутствует
	_, err = CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: 999, Amount: 500,
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 500}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// (b) сумма распределений расходится с суммой платежа
	_, err = CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 600,
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 500}},
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	// (b) расхождение в пределах ε допустимо
	p, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 500.004,
		PaymentDate: date(2025, 3, 1),
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 500}},
	})
	require.NoError(t, err)
	require.NoError(t, DeletePayment(db, p.ID))

	// (c) счет не существует
	_, err = CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 500,
		Allocations: []AllocationInput{{InvoiceID: 999, Amount: 500}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// (c) счет в черновике
	draft := createDraftBill(t, db, vendor, 100, &acc.ID)
	_, err = CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 100,
		Allocations: []AllocationInput{{InvoiceID: draft.ID, Amount: 100}},
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	// (c) счет другого контрагента
	otherVendor := createVendor(t, db, "ТОО Василек")
	otherBill := createPostedBill(t, db, otherVendor, 200, &acc.ID)
	_, err = CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 200,
		Allocations: []AllocationInput{{InvoiceID: otherBill.ID, Amount: 200}},
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	// (d) распределение сверх остатка
	_, err = CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 600,
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 600}},
	})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), bill.Reference)
}

func TestPartialPaymentState(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")
	bill := createPostedBill(t, db, vendor, 1000, &acc.ID)

	p, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 300,
		PaymentDate: date(2025, 3, 1),
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 300}},
	})
	require.NoError(t, err)
	_, err = PostPayment(db, p.ID, 1)
	require.NoError(t, err)

	var inv models.Invoice
	require.NoError(t, db.First(&inv, bill.ID).Error)
	assert.Equal(t, models.PaymentStatePartial, inv.PaymentState)

	outstanding, err := Outstanding(db, bill.ID)
	require.NoError(t, err)
	assert.InDelta(t, 700, outstanding, Epsilon)

	// Добиваем остаток - счет становится PAID
	p2, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 700,
		PaymentDate: date(2025, 3, 2),
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 700}},
	})
	require.NoError(t, err)
	_, err = PostPayment(db, p2.ID, 1)
	require.NoError(t, err)

	require.NoError(t, db.First(&inv, bill.ID).Error)
	assert.Equal(t, models.PaymentStatePaid, inv.PaymentState)
}

func TestPostPaymentRevalidatesOutstanding(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")
	bill := createPostedBill(t, db, vendor, 600, &acc.ID)

	// Два черновика, каждый по отдельности укладывается в остаток
	first, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 600,
		PaymentDate: date(2025, 3, 1),
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 600}},
	})
	require.NoError(t, err)
	second, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 600,
		PaymentDate: date(2025, 3, 1),
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 600}},
	})
	require.NoError(t, err)

	// Совместно они превышают остаток: проходит ровно один
	_, err = PostPayment(db, first.ID, 1)
	require.NoError(t, err)

	_, err = PostPayment(db, second.ID, 1)
	require.ErrorIs(t, err, ErrValidationFailed)

	// Остаток не ушел ниже -ε
	outstanding, err := Outstanding(db, bill.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, outstanding, -Epsilon)
}

func TestReplaceAllocations(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")
	billA := createPostedBill(t, db, vendor, 600, &acc.ID)
	billB := createPostedBill(t, db, vendor, 400, &acc.ID)

	p, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 600,
		PaymentDate: date(2025, 3, 1),
		Allocations: []AllocationInput{{InvoiceID: billA.ID, Amount: 600}},
	})
	require.NoError(t, err)

	updated, err := ReplaceAllocations(db, p.ID, 900, []AllocationInput{
		{InvoiceID: billA.ID, Amount: 500},
		{InvoiceID: billB.ID, Amount: 400},
	})
	require.NoError(t, err)
	assert.InDelta(t, 900, updated.Amount, Epsilon)

	// Старый набор удален, новый состоит из двух строк
	var count int64
	require.NoError(t, db.Model(&models.PaymentAllocation{}).
		Where("payment_id = ?", p.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	// Невалидная замена отклоняется целиком
	_, err = ReplaceAllocations(db, p.ID, 100, []AllocationInput{
		{InvoiceID: billA.ID, Amount: 500},
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	// После проводки платеж неизменяем
	_, err = PostPayment(db, p.ID, 1)
	require.NoError(t, err)
	_, err = ReplaceAllocations(db, p.ID, 900, []AllocationInput{
		{InvoiceID: billA.ID, Amount: 900},
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDeletePayment(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")
	bill := createPostedBill(t, db, vendor, 500, &acc.ID)

	p, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 500,
		PaymentDate: date(2025, 3, 1),
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 500}},
	})
	require.NoError(t, err)

	// Черновик удаляется каскадно вместе с распределениями
	require.NoError(t, DeletePayment(db, p.ID))
	var count int64
	require.NoError(t, db.Model(&models.PaymentAllocation{}).
		Where("payment_id = ?", p.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Проведенный платеж удалить нельзя
	p2, err := CreatePayment(db, CreatePaymentInput{
		Type: models.PaymentOutbound, PartnerID: vendor.ID, Amount: 500,
		PaymentDate: date(2025, 3, 1),
		Allocations: []AllocationInput{{InvoiceID: bill.ID, Amount: 500}},
	})
	require.NoError(t, err)
	_, err = PostPayment(db, p2.ID, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, DeletePayment(db, p2.ID), ErrInvalidState)
}

func TestReferenceGenerationIsSequentialAndDistinct(t *testing.T) {
	db := setupTestDB(t)

	// 50 номеров одного направления: все различны и строго последовательны
	seen := make(map[string]bool)
	for i := 1; i <= 50; i++ {
		var ref string
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			ref, err = NextReference(tx, SeqPaymentInbound)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("PAY-IN-%06d", i), ref)
		assert.False(t, seen[ref], "повторный номер %s", ref)
		seen[ref] = true
	}

	// Направления нумеруются независимо
	out, err := NextReference(db, SeqPaymentOutbound)
	require.NoError(t, err)
	assert.Equal(t, "PAY-OUT-000001", out)
}
