package models

import (
	"time"

	"gorm.io/gorm"
)

// Счета главной книги, используемые при построении проводок.
// Полноценный план счетов вне рамок системы, хватает фиксированного набора.
const (
	AccountExpense    = "EXPENSE"
	AccountIncome     = "INCOME"
	AccountPayable    = "ACCOUNTS_PAYABLE"
	AccountReceivable = "ACCOUNTS_RECEIVABLE"
	AccountBank       = "BANK"
	AccountCash       = "CASH"
)

// Типы документов-источников проводки.
const (
	JournalSourceInvoice = "INVOICE"
	JournalSourcePayment = "PAYMENT"
)

// JournalEntry - неизменяемая запись журнала, создается ровно один раз
// при проводке документа. Сумма дебетов строк всегда равна сумме кредитов.
type JournalEntry struct {
	gorm.Model
	Reference   string        `json:"reference" gorm:"uniqueIndex"`
	SourceType  string        `json:"sourceType" gorm:"not null"`
	SourceID    uint          `json:"sourceId" gorm:"index;not null"`
	EntryDate   time.Time     `json:"entryDate"`
	TotalDebit  float64       `json:"totalDebit" gorm:"type:numeric(12,2)"`
	TotalCredit float64       `json:"totalCredit" gorm:"type:numeric(12,2)"`
	CreatedByID uint          `json:"createdById"`
	Lines       []JournalLine `json:"lines" gorm:"foreignKey:JournalEntryID;constraint:OnDelete:CASCADE"`
}

// JournalLine - строка проводки. Заполнена либо дебетовая, либо кредитовая сторона.
type JournalLine struct {
	gorm.Model
	JournalEntryID    uint    `json:"journalEntryId" gorm:"index;not null"`
	Account           string  `json:"account" gorm:"not null"`
	Label             string  `json:"label"`
	Debit             float64 `json:"debit" gorm:"type:numeric(12,2)"`
	Credit            float64 `json:"credit" gorm:"type:numeric(12,2)"`
	AnalyticAccountID *uint   `json:"analyticAccountId"`
}
