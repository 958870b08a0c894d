package models

import "gorm.io/gorm"

// ProductCategory - категория товара или услуги.
type ProductCategory struct {
	gorm.Model
	Name string `json:"name" gorm:"unique;not null"`
}

// Product представляет товар или услугу из каталога.
// TaxRate - плоская ставка налога, хранится как есть и нигде не пересчитывается.
type Product struct {
	gorm.Model
	Name       string           `json:"name" gorm:"not null"`
	CategoryID *uint            `json:"categoryId"`
	Category   *ProductCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	UnitPrice  float64          `json:"unitPrice" gorm:"type:numeric(12,2)"`
	TaxRate    float64          `json:"taxRate" gorm:"type:numeric(5,2)"`
}
