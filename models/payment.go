package models

import (
	"time"

	"gorm.io/gorm"
)

// Направления платежа.
const (
	PaymentOutbound = "OUTBOUND" // платеж поставщику
	PaymentInbound  = "INBOUND"  // поступление от покупателя
)

// Статусы платежа.
const (
	PaymentDraft  = "DRAFT"
	PaymentPosted = "POSTED"
)

// Способы оплаты. Определяют кредитовую сторону проводки платежа.
const (
	MethodBank = "BANK"
	MethodCash = "CASH"
)

// Payment представляет платеж и владеет своими распределениями:
// они создаются и удаляются только вместе с платежом.
type Payment struct {
	gorm.Model
	Reference         string              `json:"reference" gorm:"uniqueIndex"`
	Type              string              `json:"type" gorm:"not null"`
	PartnerID         uint                `json:"partnerId" gorm:"not null"`
	Partner           Partner             `json:"partner" gorm:"foreignKey:PartnerID"`
	Amount            float64             `json:"amount" gorm:"type:numeric(12,2)"`
	PaymentDate       time.Time           `json:"paymentDate"`
	Method            string              `json:"method" gorm:"default:'BANK'"`
	Status            string              `json:"status" gorm:"default:'DRAFT'"`
	ExternalReference string              `json:"externalReference"`
	JournalEntryID    *uint               `json:"journalEntryId"`
	CreatedByID       uint                `json:"createdById"`
	Allocations       []PaymentAllocation `json:"allocations" gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
}

// PaymentAllocation - часть платежа, отнесенная на конкретный счет.
// Инвариант: сумма распределений платежа равна его сумме (в пределах ε).
type PaymentAllocation struct {
	gorm.Model
	PaymentID uint    `json:"paymentId" gorm:"index;not null"`
	InvoiceID uint    `json:"invoiceId" gorm:"index;not null"`
	Invoice   Invoice `json:"-" gorm:"foreignKey:InvoiceID"`
	Amount    float64 `json:"amount" gorm:"type:numeric(12,2);not null"`
}
