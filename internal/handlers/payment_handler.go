package handlers

import (
	"net/http"
	"strings"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PaymentInput - входящие данные платежа.
type PaymentInput struct {
	Type              string                     `json:"type" binding:"required"`
	PartnerID         uint                       `json:"partnerId" binding:"required"`
	Amount            float64                    `json:"amount" binding:"required"`
	PaymentDate       string                     `json:"paymentDate" binding:"required"`
	Method            string                     `json:"method"`
	ExternalReference string                     `json:"externalReference"`
	Allocations       []services.AllocationInput `json:"allocations" binding:"required"`
}

// CreatePaymentHandler создает черновик платежа с распределениями.
// Валидация роли контрагента, сумм и остатков выполняется сервисом.
func CreatePaymentHandler(c *gin.Context) {
	var input PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	paymentDate, err := time.Parse("2006-01-02", input.PaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
		return
	}
	if input.Type != models.PaymentOutbound && input.Type != models.PaymentInbound {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Направление платежа должно быть OUTBOUND или INBOUND"})
		return
	}

	var payment *models.Payment
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = services.CreatePayment(tx, services.CreatePaymentInput{
			Type:              input.Type,
			PartnerID:         input.PartnerID,
			Amount:            input.Amount,
			PaymentDate:       paymentDate,
			Method:            input.Method,
			ExternalReference: input.ExternalReference,
			ActorID:           actorID(c),
			Allocations:       input.Allocations,
		})
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// ReplaceAllocationsInput - новая сумма и распределения черновика.
type ReplaceAllocationsInput struct {
	Amount      float64                    `json:"amount" binding:"required"`
	Allocations []services.AllocationInput `json:"allocations" binding:"required"`
}

// UpdatePaymentAllocationsHandler заменяет распределения черновика платежа.
func UpdatePaymentAllocationsHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input ReplaceAllocationsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var payment *models.Payment
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = services.ReplaceAllocations(tx, id, input.Amount, input.Allocations)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// PostPaymentHandler проводит платеж. Остатки счетов проверяются повторно
// по текущему состоянию: между созданием черновика и проводкой счета могли
// быть оплачены другими платежами.
func PostPaymentHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var result *services.PostPaymentResult
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = services.PostPayment(tx, id, actorID(c))
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastEvent("payment.posted", result.Payment.Reference, actorID(c))
	c.JSON(http.StatusOK, result)
}

// GetPaymentHandler возвращает платеж с распределениями.
func GetPaymentHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payment models.Payment
	if err := config.DB.Preload("Allocations").Preload("Partner").First(&payment, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
		return
	}
	c.JSON(http.StatusOK, payment)
}

// ListPaymentsHandler возвращает платежи с фильтрами и пагинацией.
func ListPaymentsHandler(c *gin.Context) {
	var payments []models.Payment
	var totalRows int64

	query := config.DB.Model(&models.Payment{}).Preload("Partner")
	if paymentType := c.Query("type"); paymentType != "" {
		query = query.Where("payments.type = ?", paymentType)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("payments.status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN partners ON partners.id = payments.partner_id").
			Where("LOWER(payments.reference) LIKE ? OR LOWER(partners.name) LIKE ?", pattern, pattern)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("payments.created_at desc").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить платежи"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, payments, totalRows))
}

// DeletePaymentHandler удаляет черновик платежа вместе с распределениями.
func DeletePaymentHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		return services.DeletePayment(tx, id)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Платеж удален"})
}
