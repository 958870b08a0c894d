package models

import "gorm.io/gorm"

// PartnerTag - метка контрагента (сегмент, отрасль и т.п.).
// Используется правилами автоаналитики как один из атрибутов сопоставления.
type PartnerTag struct {
	gorm.Model
	Name string `json:"name" gorm:"unique;not null"`
}

// Partner представляет контрагента: поставщика, покупателя или обоих сразу.
// Роль проверяется при создании платежа: OUTBOUND требует поставщика,
// INBOUND - покупателя.
type Partner struct {
	gorm.Model
	Name         string      `json:"name" gorm:"not null"`
	Bin          string      `json:"bin"` // БИН/ИИН контрагента
	IsVendor     bool        `json:"isVendor"`
	IsCustomer   bool        `json:"isCustomer"`
	PartnerTagID *uint       `json:"partnerTagId"`
	PartnerTag   *PartnerTag `json:"partnerTag,omitempty" gorm:"foreignKey:PartnerTagID"`
}
