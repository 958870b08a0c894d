package models

import "gorm.io/gorm"

// User - пользователь бэк-офиса. Пароль храним только в виде bcrypt-хэша.
type User struct {
	gorm.Model
	Login        string `json:"login" gorm:"unique;not null"`
	PasswordHash string `json:"-"`
	FullName     string `json:"fullName"`
	Roles        []Role `json:"roles" gorm:"many2many:user_roles;"`
}

// Role определяет модель роли в базе данных.
type Role struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"unique;not null"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions" gorm:"many2many:role_permissions;"`
}

// Permission представляет модель права доступа в базе данных.
type Permission struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description"`
	Category    string `json:"category"` // Категория для группировки (например, "Счета", "Бюджеты")
}
