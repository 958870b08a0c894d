package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GatewayWebhookInput - итог операции платежного шлюза. Подпись HMAC
// проверяется на стороне шлюза, сюда приходит только результат проверки.
type GatewayWebhookInput struct {
	PartnerID         uint    `json:"partnerId" binding:"required"`
	InvoiceID         uint    `json:"invoiceId" binding:"required"`
	Amount            float64 `json:"amount" binding:"required"`
	ExternalReference string  `json:"externalReference"`
	SignatureValid    *bool   `json:"signatureValid" binding:"required"`
}

// GatewayWebhookHandler принимает уведомление шлюза об оплате счета
// покупателем: создает входящий платеж и сразу проводит его. Повторная
// доставка того же уведомления определяется по externalReference и
// не создает второй платеж.
func GatewayWebhookHandler(c *gin.Context) {
	var input GatewayWebhookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	if !*input.SignatureValid {
		slog.Warn("Вебхук шлюза отклонен: подпись не прошла проверку",
			"invoiceId", input.InvoiceID, "externalReference", input.ExternalReference)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительная подпись уведомления"})
		return
	}

	externalRef := input.ExternalReference
	if externalRef == "" {
		externalRef = "GW-" + uuid.NewString()
	}

	var payment *models.Payment
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Payment
		err := tx.Where("external_reference = ?", externalRef).First(&existing).Error
		if err == nil {
			payment = &existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		created, err := services.CreatePayment(tx, services.CreatePaymentInput{
			Type:              models.PaymentInbound,
			PartnerID:         input.PartnerID,
			Amount:            input.Amount,
			PaymentDate:       time.Now(),
			Method:            models.MethodBank,
			ExternalReference: externalRef,
			Allocations: []services.AllocationInput{
				{InvoiceID: input.InvoiceID, Amount: input.Amount},
			},
		})
		if err != nil {
			return err
		}
		result, err := services.PostPayment(tx, created.ID, created.CreatedByID)
		if err != nil {
			return err
		}
		payment = result.Payment
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastEvent("payment.gateway", payment.Reference, payment.CreatedByID)
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}
