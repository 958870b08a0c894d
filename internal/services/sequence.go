// internal/services/sequence.go
package services

import (
	"fmt"

	"mercury-erp/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Коды последовательностей нумерации документов.
const (
	SeqPurchaseOrder   = "purchase.order"
	SeqSalesOrder      = "sales.order"
	SeqVendorBill      = "invoice.vendor"
	SeqCustomerInvoice = "invoice.customer"
	SeqPaymentOutbound = "payment.outbound"
	SeqPaymentInbound  = "payment.inbound"
	SeqJournalEntry    = "journal.entry"
)

// Префиксы по кодам последовательностей.
var sequencePrefixes = map[string]string{
	SeqPurchaseOrder:   "PO-",
	SeqSalesOrder:      "SO-",
	SeqVendorBill:      "BILL-",
	SeqCustomerInvoice: "INV-",
	SeqPaymentOutbound: "PAY-OUT-",
	SeqPaymentInbound:  "PAY-IN-",
	SeqJournalEntry:    "JE-",
}

// NextReference выдает следующий номер документа: префикс плюс числовой
// суффикс c нулями до шести знаков, первый номер - 1.
//
// Строка счетчика берется под блокировку SELECT ... FOR UPDATE внутри
// транзакции вызывающего: чтение последнего номера с последующим инкрементом -
// это check-then-act, без сериализации на уровне хранилища два параллельных
// платежа получили бы одинаковый номер. Уникальный индекс на колонке
// reference остается последней линией защиты.
func NextReference(tx *gorm.DB, code string) (string, error) {
	prefix, ok := sequencePrefixes[code]
	if !ok {
		return "", Validationf("неизвестная последовательность нумерации: %s", code)
	}

	// Создаем строку счетчика при первом обращении; при гонке двух создателей
	// выживает одна строка за счет уникального индекса по code.
	seed := models.Sequence{Code: code, Prefix: prefix}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return "", err
	}

	var seq models.Sequence
	if err := lockForUpdate(tx).
		Where("code = ?", code).
		First(&seq).Error; err != nil {
		return "", err
	}

	seq.LastNumber++
	if err := tx.Model(&models.Sequence{}).
		Where("id = ?", seq.ID).
		Update("last_number", seq.LastNumber).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%06d", seq.Prefix, seq.LastNumber), nil
}
