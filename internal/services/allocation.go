// internal/services/allocation.go
//
// Движок распределения платежей: один платеж покрывает несколько проведенных
// счетов. Проверки сумм и остатков выполняются в той же транзакции, что и
// запись, под блокировкой строк целевых счетов - иначе два параллельных
// платежа могли бы вдвоем израсходовать один и тот же остаток.
package services

import (
	"errors"
	"math"
	"time"

	"mercury-erp/models"

	"gorm.io/gorm"
)

// AllocationInput - пара "счет, сумма" из запроса на платеж.
type AllocationInput struct {
	InvoiceID uint    `json:"invoiceId" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
}

// CreatePaymentInput - входные данные создания платежа.
type CreatePaymentInput struct {
	Type              string
	PartnerID         uint
	Amount            float64
	PaymentDate       time.Time
	Method            string
	ExternalReference string
	Allocations       []AllocationInput
	ActorID           uint
}

// Outstanding - непокрытый остаток счета: общая сумма минус распределения
// всех проведенных платежей.
func Outstanding(tx *gorm.DB, invoiceID uint) (float64, error) {
	var inv models.Invoice
	if err := tx.First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, NotFoundf("счет %d не найден", invoiceID)
		}
		return 0, err
	}
	paid, err := postedAllocationSum(tx, invoiceID)
	if err != nil {
		return 0, err
	}
	return inv.TotalAmount - paid, nil
}

func postedAllocationSum(tx *gorm.DB, invoiceID uint) (float64, error) {
	var paid float64
	err := tx.Model(&models.PaymentAllocation{}).
		Joins("JOIN payments ON payments.id = payment_allocations.payment_id").
		Where("payment_allocations.invoice_id = ?", invoiceID).
		Where("payments.status = ?", models.PaymentPosted).
		Where("payments.deleted_at IS NULL AND payment_allocations.deleted_at IS NULL").
		Select("coalesce(sum(payment_allocations.amount), 0)").
		Scan(&paid).Error
	return paid, err
}

// validateAllocations выполняет проверки §4.2 в строгом порядке, первый отказ
// завершает проверку:
//
//	(a) контрагент существует и его роль соответствует направлению платежа;
//	(b) сумма распределений равна сумме платежа в пределах ε;
//	(c) каждый счет существует, проведен и принадлежит контрагенту платежа;
//	(d) распределение не превышает остаток счета (остаток читается под
//	    блокировкой FOR UPDATE в текущей транзакции).
//
// checkPartner=false используется при повторной валидации во время проводки
// платежа, где повторяются только (b) и (d)+(c)-существование.
func validateAllocations(tx *gorm.DB, paymentType string, partnerID uint, total float64, allocs []AllocationInput, checkPartner bool) error {
	if checkPartner {
		var partner models.Partner
		if err := tx.First(&partner, partnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("контрагент %d не найден", partnerID)
			}
			return err
		}
		switch paymentType {
		case models.PaymentOutbound:
			if !partner.IsVendor {
				return Validationf("исходящий платеж требует контрагента-поставщика, а %q им не является", partner.Name)
			}
		case models.PaymentInbound:
			if !partner.IsCustomer {
				return Validationf("входящий платеж требует контрагента-покупателя, а %q им не является", partner.Name)
			}
		default:
			return Validationf("неизвестное направление платежа: %s", paymentType)
		}
	}

	if len(allocs) == 0 {
		return Validationf("платеж должен содержать хотя бы одно распределение")
	}

	sum := 0.0
	for _, a := range allocs {
		if a.Amount <= 0 {
			return Validationf("распределение по счету %d должно быть положительным, получено %.2f", a.InvoiceID, a.Amount)
		}
		sum += a.Amount
	}
	if math.Abs(sum-total) > Epsilon {
		return Validationf("сумма распределений %.2f не совпадает с суммой платежа %.2f", sum, total)
	}

	// Суммируем распределения по счету: две строки на один счет должны
	// проверяться против остатка совместно, а не по отдельности.
	perInvoice := make(map[uint]float64)
	order := make([]uint, 0, len(allocs))
	for _, a := range allocs {
		if _, seen := perInvoice[a.InvoiceID]; !seen {
			order = append(order, a.InvoiceID)
		}
		perInvoice[a.InvoiceID] += a.Amount
	}

	wantType := models.InvoiceVendorBill
	if paymentType == models.PaymentInbound {
		wantType = models.InvoiceCustomerInvoice
	}

	for _, invoiceID := range order {
		var inv models.Invoice
		if err := lockForUpdate(tx).First(&inv, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("счет %d не найден", invoiceID)
			}
			return err
		}
		if inv.Status != models.InvoicePosted {
			return Validationf("счет %s не проведен, распределение платежа невозможно", inv.Reference)
		}
		if inv.Type != wantType {
			return Validationf("счет %s типа %s не подходит для платежа направления %s", inv.Reference, inv.Type, paymentType)
		}
		if inv.PartnerID != partnerID {
			return Validationf("счет %s принадлежит другому контрагенту", inv.Reference)
		}

		paid, err := postedAllocationSum(tx, invoiceID)
		if err != nil {
			return err
		}
		outstanding := inv.TotalAmount - paid
		if perInvoice[invoiceID] > outstanding+Epsilon {
			return Validationf("распределение %.2f по счету %s превышает остаток %.2f",
				perInvoice[invoiceID], inv.Reference, outstanding)
		}
	}
	return nil
}

// CreatePayment создает платеж в статусе DRAFT вместе с его распределениями
// и сгенерированным номером. Остатки счетов на этом шаге не расходуются:
// черновик резервирует только номер.
func CreatePayment(tx *gorm.DB, in CreatePaymentInput) (*models.Payment, error) {
	if err := validateAllocations(tx, in.Type, in.PartnerID, in.Amount, in.Allocations, true); err != nil {
		return nil, err
	}

	seqCode := SeqPaymentOutbound
	if in.Type == models.PaymentInbound {
		seqCode = SeqPaymentInbound
	}
	ref, err := NextReference(tx, seqCode)
	if err != nil {
		return nil, err
	}

	method := in.Method
	if method == "" {
		method = models.MethodBank
	}

	payment := models.Payment{
		Reference:         ref,
		Type:              in.Type,
		PartnerID:         in.PartnerID,
		Amount:            in.Amount,
		PaymentDate:       in.PaymentDate,
		Method:            method,
		Status:            models.PaymentDraft,
		ExternalReference: in.ExternalReference,
		CreatedByID:       in.ActorID,
	}
	for _, a := range in.Allocations {
		payment.Allocations = append(payment.Allocations, models.PaymentAllocation{
			InvoiceID: a.InvoiceID,
			Amount:    a.Amount,
		})
	}

	if err := tx.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ReplaceAllocations полностью заменяет набор распределений черновика
// (удаление и пересоздание одной транзакцией) с той же валидацией, что и при
// создании. Проведенные платежи неизменяемы.
func ReplaceAllocations(tx *gorm.DB, paymentID uint, amount float64, allocs []AllocationInput) (*models.Payment, error) {
	var payment models.Payment
	if err := lockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("платеж %d не найден", paymentID)
		}
		return nil, err
	}
	if payment.Status != models.PaymentDraft {
		return nil, InvalidStatef("платеж %s проведен и не подлежит редактированию", payment.Reference)
	}

	if err := validateAllocations(tx, payment.Type, payment.PartnerID, amount, allocs, true); err != nil {
		return nil, err
	}

	if err := tx.Where("payment_id = ?", payment.ID).Delete(&models.PaymentAllocation{}).Error; err != nil {
		return nil, err
	}
	payment.Amount = amount
	payment.Allocations = nil
	// Сумма обновляется до заполнения Allocations: иначе GORM при Update
	// сохранил бы ассоциации сам, и последующий Create вставил бы их повторно.
	if err := tx.Model(&payment).Update("amount", amount).Error; err != nil {
		return nil, err
	}
	for _, a := range allocs {
		payment.Allocations = append(payment.Allocations, models.PaymentAllocation{
			PaymentID: payment.ID,
			InvoiceID: a.InvoiceID,
			Amount:    a.Amount,
		})
	}
	if err := tx.Create(&payment.Allocations).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// PostPaymentResult - итог проводки платежа.
type PostPaymentResult struct {
	Payment      *models.Payment      `json:"payment"`
	JournalEntry *models.JournalEntry `json:"journalEntry"`
}

// PostPayment проводит черновик платежа: повторно проверяет суммы и остатки
// по текущему состоянию, переводит платеж в POSTED, строит проводку и
// пересчитывает состояние оплаты каждого затронутого счета.
func PostPayment(tx *gorm.DB, paymentID uint, actorID uint) (*PostPaymentResult, error) {
	var payment models.Payment
	if err := lockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("платеж %d не найден", paymentID)
		}
		return nil, err
	}
	if payment.Status != models.PaymentDraft {
		return nil, InvalidStatef("платеж %s уже проведен", payment.Reference)
	}
	if err := tx.Where("payment_id = ?", payment.ID).Order("id asc").Find(&payment.Allocations).Error; err != nil {
		return nil, err
	}

	allocs := make([]AllocationInput, 0, len(payment.Allocations))
	for _, a := range payment.Allocations {
		allocs = append(allocs, AllocationInput{InvoiceID: a.InvoiceID, Amount: a.Amount})
	}
	// Повторная валидация (b)+(d): остатки могли измениться с момента
	// создания черновика.
	if err := validateAllocations(tx, payment.Type, payment.PartnerID, payment.Amount, allocs, false); err != nil {
		return nil, err
	}

	if err := tx.Model(&payment).Update("status", models.PaymentPosted).Error; err != nil {
		return nil, err
	}
	payment.Status = models.PaymentPosted

	entry := BuildPaymentEntry(&payment)
	if err := persistEntry(tx, entry, actorID); err != nil {
		return nil, err
	}
	if err := tx.Model(&payment).Update("journal_entry_id", entry.ID).Error; err != nil {
		return nil, err
	}
	payment.JournalEntryID = &entry.ID

	// Пересчитываем производное состояние оплаты затронутых счетов.
	seen := make(map[uint]bool)
	for _, a := range payment.Allocations {
		if seen[a.InvoiceID] {
			continue
		}
		seen[a.InvoiceID] = true
		if err := recomputePaymentState(tx, a.InvoiceID); err != nil {
			return nil, err
		}
	}

	return &PostPaymentResult{Payment: &payment, JournalEntry: entry}, nil
}

// DeletePayment удаляет черновик платежа вместе с распределениями.
// Проведенный платеж удалить нельзя.
func DeletePayment(tx *gorm.DB, paymentID uint) error {
	var payment models.Payment
	if err := lockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundf("платеж %d не найден", paymentID)
		}
		return err
	}
	if payment.Status != models.PaymentDraft {
		return InvalidStatef("платеж %s проведен, удаление запрещено", payment.Reference)
	}
	if err := tx.Where("payment_id = ?", payment.ID).Delete(&models.PaymentAllocation{}).Error; err != nil {
		return err
	}
	return tx.Delete(&payment).Error
}

// recomputePaymentState выставляет счету PAID / PARTIAL / NOT_PAID по
// фактическому остатку.
func recomputePaymentState(tx *gorm.DB, invoiceID uint) error {
	var inv models.Invoice
	if err := tx.First(&inv, invoiceID).Error; err != nil {
		return err
	}
	paid, err := postedAllocationSum(tx, invoiceID)
	if err != nil {
		return err
	}
	outstanding := inv.TotalAmount - paid

	state := models.PaymentStateNotPaid
	switch {
	case outstanding <= Epsilon:
		state = models.PaymentStatePaid
	case paid > Epsilon:
		state = models.PaymentStatePartial
	}
	return tx.Model(&inv).Update("payment_state", state).Error
}
