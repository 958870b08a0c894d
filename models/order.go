package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы заказов (закупки и продажи).
const (
	OrderDraft     = "DRAFT"
	OrderConfirmed = "CONFIRMED"
	OrderCancelled = "CANCELLED"
)

// PurchaseOrder представляет заказ поставщику.
type PurchaseOrder struct {
	gorm.Model
	Reference   string              `json:"reference" gorm:"uniqueIndex"`
	PartnerID   uint                `json:"partnerId" gorm:"not null"`
	Partner     Partner             `json:"partner" gorm:"foreignKey:PartnerID"`
	OrderDate   time.Time           `json:"orderDate"`
	Status      string              `json:"status" gorm:"default:'DRAFT'"`
	Notes       string              `json:"notes"`
	CreatedByID uint                `json:"createdById"`
	Lines       []PurchaseOrderLine `json:"lines" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// PurchaseOrderLine - строка заказа поставщику.
// Subtotal всегда равен Quantity * UnitPrice и пересчитывается при записи.
type PurchaseOrderLine struct {
	gorm.Model
	OrderID           uint     `json:"orderId" gorm:"index;not null"`
	ProductID         *uint    `json:"productId"`
	Product           *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Description       string   `json:"description"`
	Quantity          float64  `json:"quantity" gorm:"type:numeric(12,3)"`
	UnitPrice         float64  `json:"unitPrice" gorm:"type:numeric(12,2)"`
	Subtotal          float64  `json:"subtotal" gorm:"type:numeric(12,2)"`
	AnalyticAccountID *uint    `json:"analyticAccountId"`
}

// SalesOrder представляет заказ покупателя.
type SalesOrder struct {
	gorm.Model
	Reference     string           `json:"reference" gorm:"uniqueIndex"`
	PartnerID     uint             `json:"partnerId" gorm:"not null"`
	Partner       Partner          `json:"partner" gorm:"foreignKey:PartnerID"`
	OrderDate     time.Time        `json:"orderDate"`
	Status        string           `json:"status" gorm:"default:'DRAFT'"`
	PaymentTermID *uint            `json:"paymentTermId"`
	Notes         string           `json:"notes"`
	CreatedByID   uint             `json:"createdById"`
	Lines         []SalesOrderLine `json:"lines" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// SalesOrderLine - строка заказа покупателя.
type SalesOrderLine struct {
	gorm.Model
	OrderID           uint     `json:"orderId" gorm:"index;not null"`
	ProductID         *uint    `json:"productId"`
	Product           *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Description       string   `json:"description"`
	Quantity          float64  `json:"quantity" gorm:"type:numeric(12,3)"`
	UnitPrice         float64  `json:"unitPrice" gorm:"type:numeric(12,2)"`
	Subtotal          float64  `json:"subtotal" gorm:"type:numeric(12,2)"`
	AnalyticAccountID *uint    `json:"analyticAccountId"`
}
