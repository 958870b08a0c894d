// FILE: mercury-erp/models/invoice.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Типы счетов: входящий счет поставщика и исходящий счет покупателю.
const (
	InvoiceVendorBill      = "VENDOR_BILL"
	InvoiceCustomerInvoice = "CUSTOMER_INVOICE"
)

// Статусы счета. POSTED - терминальный: после проводки счет неизменяем,
// кроме регистрации оплат.
const (
	InvoiceDraft  = "DRAFT"
	InvoicePosted = "POSTED"
)

// Производное состояние оплаты счета.
const (
	PaymentStateNotPaid = "NOT_PAID"
	PaymentStatePartial = "PARTIAL"
	PaymentStatePaid    = "PAID"
)

// Invoice представляет счет поставщика (VENDOR_BILL) или счет покупателю
// (CUSTOMER_INVOICE). TotalAmount - сумма подытогов строк, пересчитывается
// при каждой замене строк в черновике.
type Invoice struct {
	gorm.Model
	Reference      string        `json:"reference" gorm:"uniqueIndex"`
	Type           string        `json:"type" gorm:"not null"`
	PartnerID      uint          `json:"partnerId" gorm:"not null"`
	Partner        Partner       `json:"partner" gorm:"foreignKey:PartnerID"`
	InvoiceDate    time.Time     `json:"invoiceDate"`
	Status         string        `json:"status" gorm:"default:'DRAFT'"`
	PaymentState   string        `json:"paymentState" gorm:"default:'NOT_PAID'"`
	TotalAmount    float64       `json:"totalAmount" gorm:"type:numeric(12,2)"`
	JournalEntryID *uint         `json:"journalEntryId"`
	CreatedByID    uint          `json:"createdById"`
	PostedByID     *uint         `json:"postedById"`
	Lines          []InvoiceLine `json:"lines" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// InvoiceLine - строка счета. Перед проводкой каждая строка обязана нести
// ссылку на аналитический счет, иначе проводка отклоняется.
type InvoiceLine struct {
	gorm.Model
	InvoiceID         uint     `json:"invoiceId" gorm:"index;not null"`
	ProductID         *uint    `json:"productId"`
	Product           *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Description       string   `json:"description"`
	Quantity          float64  `json:"quantity" gorm:"type:numeric(12,3)"`
	UnitPrice         float64  `json:"unitPrice" gorm:"type:numeric(12,2)"`
	Subtotal          float64  `json:"subtotal" gorm:"type:numeric(12,2)"`
	AnalyticAccountID *uint    `json:"analyticAccountId"`
}
