package services

import (
	"testing"
	"time"

	"mercury-erp/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB поднимает изолированную БД в памяти для одного теста.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Один коннект, чтобы все запросы видели одну и ту же in-memory базу.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.Permission{},
		&models.PartnerTag{}, &models.Partner{},
		&models.ProductCategory{}, &models.Product{},
		&models.AnalyticAccount{},
		&models.PurchaseOrder{}, &models.PurchaseOrderLine{},
		&models.SalesOrder{}, &models.SalesOrderLine{},
		&models.Invoice{}, &models.InvoiceLine{},
		&models.Payment{}, &models.PaymentAllocation{},
		&models.Budget{},
		&models.AutoAnalyticalRule{},
		&models.JournalEntry{}, &models.JournalLine{},
		&models.Sequence{},
		&models.PaymentTerm{}, &models.PaymentTermInstallment{},
	))
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timeMonth(m int) time.Month {
	return time.Month(m)
}

func uintPtr(v uint) *uint {
	return &v
}

func createVendor(t *testing.T, db *gorm.DB, name string) *models.Partner {
	t.Helper()
	p := &models.Partner{Name: name, IsVendor: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createCustomer(t *testing.T, db *gorm.DB, name string) *models.Partner {
	t.Helper()
	p := &models.Partner{Name: name, IsCustomer: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createConfirmedAccount(t *testing.T, db *gorm.DB, code string) *models.AnalyticAccount {
	t.Helper()
	acc := &models.AnalyticAccount{Code: code, Name: "ЦЗ " + code, Status: models.AnalyticConfirmed}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

// createDraftBill создает черновик счета поставщика с одной строкой на total.
func createDraftBill(t *testing.T, db *gorm.DB, partner *models.Partner, total float64, analyticID *uint) *models.Invoice {
	t.Helper()
	ref, err := NextReference(db, SeqVendorBill)
	require.NoError(t, err)
	inv := &models.Invoice{
		Reference:   ref,
		Type:        models.InvoiceVendorBill,
		PartnerID:   partner.ID,
		InvoiceDate: date(2025, 3, 10),
		Status:      models.InvoiceDraft,
		TotalAmount: total,
		Lines: []models.InvoiceLine{
			{Description: "Услуги", Quantity: 1, UnitPrice: total, Subtotal: total, AnalyticAccountID: analyticID},
		},
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

// createPostedBill создает и сразу проводит счет поставщика.
func createPostedBill(t *testing.T, db *gorm.DB, partner *models.Partner, total float64, analyticID *uint) *models.Invoice {
	t.Helper()
	inv := createDraftBill(t, db, partner, total, analyticID)
	res, err := PostInvoice(db, inv.ID, 1)
	require.NoError(t, err)
	return res.Invoice
}
