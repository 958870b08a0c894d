// internal/services/journal.go
package services

import (
	"fmt"
	"math"

	"mercury-erp/models"

	"gorm.io/gorm"
)

// Epsilon - допуск при сравнении денежных сумм, 0.01 денежной единицы.
const Epsilon = 0.01

// AmountsEqual сравнивает две суммы с допуском Epsilon.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// round2 округляет к двум знакам, чтобы подытоги строк не копили хвосты float.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildInvoiceEntry строит сбалансированную проводку по счету: для счета
// поставщика - дебет по каждой строке (с ее аналитическим счетом) и один
// кредит кредиторской задолженности на общую сумму; для счета покупателю -
// зеркально (дебет дебиторской задолженности, кредит дохода построчно).
// Чистая функция; запись в журнал выполняет PostInvoice.
func BuildInvoiceEntry(inv *models.Invoice) *models.JournalEntry {
	entry := &models.JournalEntry{
		SourceType: models.JournalSourceInvoice,
		SourceID:   inv.ID,
		EntryDate:  inv.InvoiceDate,
	}

	total := 0.0
	for _, line := range inv.Lines {
		amount := round2(line.Subtotal)
		total += amount
		jl := models.JournalLine{
			Label:             line.Description,
			AnalyticAccountID: line.AnalyticAccountID,
		}
		if inv.Type == models.InvoiceVendorBill {
			jl.Account = models.AccountExpense
			jl.Debit = amount
		} else {
			jl.Account = models.AccountIncome
			jl.Credit = amount
		}
		entry.Lines = append(entry.Lines, jl)
	}
	total = round2(total)

	counterpart := models.JournalLine{
		Label: fmt.Sprintf("Счет %s", inv.Reference),
	}
	if inv.Type == models.InvoiceVendorBill {
		counterpart.Account = models.AccountPayable
		counterpart.Credit = total
	} else {
		counterpart.Account = models.AccountReceivable
		counterpart.Debit = total
	}
	entry.Lines = append(entry.Lines, counterpart)

	entry.TotalDebit, entry.TotalCredit = entryTotals(entry)
	return entry
}

// BuildPaymentEntry строит проводку по платежу: дебет задолженности и кредит
// денежного счета, выбираемого по способу оплаты. Для поступлений от
// покупателей стороны зеркальны.
func BuildPaymentEntry(p *models.Payment) *models.JournalEntry {
	cash := models.AccountBank
	if p.Method == models.MethodCash {
		cash = models.AccountCash
	}

	entry := &models.JournalEntry{
		SourceType: models.JournalSourcePayment,
		SourceID:   p.ID,
		EntryDate:  p.PaymentDate,
	}
	amount := round2(p.Amount)
	label := fmt.Sprintf("Платеж %s", p.Reference)

	if p.Type == models.PaymentOutbound {
		entry.Lines = []models.JournalLine{
			{Account: models.AccountPayable, Label: label, Debit: amount},
			{Account: cash, Label: label, Credit: amount},
		}
	} else {
		entry.Lines = []models.JournalLine{
			{Account: cash, Label: label, Debit: amount},
			{Account: models.AccountReceivable, Label: label, Credit: amount},
		}
	}

	entry.TotalDebit, entry.TotalCredit = entryTotals(entry)
	return entry
}

func entryTotals(e *models.JournalEntry) (debit, credit float64) {
	for _, l := range e.Lines {
		debit += l.Debit
		credit += l.Credit
	}
	return round2(debit), round2(credit)
}

// EntryBalanced проверяет нулевое сальдо проводки.
func EntryBalanced(e *models.JournalEntry) bool {
	debit, credit := entryTotals(e)
	return AmountsEqual(debit, credit)
}

// persistEntry присваивает проводке номер и записывает ее внутри транзакции.
// Несбалансированная проводка не записывается никогда.
func persistEntry(tx *gorm.DB, entry *models.JournalEntry, actorID uint) error {
	if !EntryBalanced(entry) {
		return Validationf("проводка не сбалансирована: дебет %.2f, кредит %.2f",
			entry.TotalDebit, entry.TotalCredit)
	}
	ref, err := NextReference(tx, SeqJournalEntry)
	if err != nil {
		return err
	}
	entry.Reference = ref
	entry.CreatedByID = actorID
	return tx.Create(entry).Error
}
