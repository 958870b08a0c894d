// FILE: mercury-erp/main.go
package main

import (
	"log/slog"
	"os"

	"mercury-erp/config"
	"mercury-erp/internal/handlers"
	"mercury-erp/internal/routes"
	"mercury-erp/models"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Файл .env не найден, используем переменные окружения")
	}

	config.LoadSettings()
	config.ConnectDB()
	config.ConnectRedis()
	if err := config.InitGoogleServices(); err != nil {
		slog.Error("Не удалось инициализировать Gemini", "error", err)
	}

	err := config.DB.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Partner{},
		&models.PartnerTag{},
		&models.Product{},
		&models.ProductCategory{},
		&models.AnalyticAccount{},
		&models.AutoAnalyticalRule{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.SalesOrder{},
		&models.SalesOrderLine{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.Payment{},
		&models.PaymentAllocation{},
		&models.Budget{},
		&models.JournalEntry{},
		&models.JournalLine{},
		&models.Sequence{},
		&models.PaymentTerm{},
		&models.PaymentTermInstallment{},
	)
	if err != nil {
		slog.Error("Ошибка миграции базы данных", "error", err)
		os.Exit(1)
	}

	go handlers.GlobalHub.Run()

	r := routes.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Запуск сервера", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Сервер остановлен с ошибкой", "error", err)
		os.Exit(1)
	}
}
