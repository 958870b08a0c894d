// models/payment_term.go

package models

import "gorm.io/gorm"

// PaymentTerm - условия оплаты заказа покупателя: набор плановых платежей,
// сумма каждого задается формулой от общей суммы заказа.
type PaymentTerm struct {
	gorm.Model
	Name              string                   `json:"name"`
	InstallmentsCount int                      `json:"installments_count"`
	Installments      []PaymentTermInstallment `json:"installments" gorm:"foreignKey:PaymentTermID;constraint:OnDelete:CASCADE"`
}

// PaymentTermInstallment - отдельный плановый платеж в рамках условий оплаты.
// Formula - выражение над переменной total, например "total * 0.3".
type PaymentTermInstallment struct {
	gorm.Model
	PaymentTermID uint   `json:"payment_term_id" gorm:"index"`
	Sequence      int    `json:"sequence"`
	DaysAfter     int    `json:"days_after"`
	Formula       string `json:"formula"`
}

// TableName задает имя таблицы для GORM.
func (PaymentTerm) TableName() string {
	return "payment_terms"
}

// TableName задает имя таблицы для GORM.
func (PaymentTermInstallment) TableName() string {
	return "payment_term_installments"
}
