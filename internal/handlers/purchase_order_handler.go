package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OrderLineInput - строка заказа или счета из запроса.
type OrderLineInput struct {
	ProductID         *uint   `json:"productId"`
	Description       string  `json:"description"`
	Quantity          float64 `json:"quantity" binding:"required"`
	UnitPrice         float64 `json:"unitPrice"`
	AnalyticAccountID *uint   `json:"analyticAccountId"`
}

// OrderInput - входящие данные заказа.
type OrderInput struct {
	PartnerID     uint             `json:"partnerId" binding:"required"`
	OrderDate     string           `json:"orderDate" binding:"required"`
	Notes         string           `json:"notes"`
	PaymentTermID *uint            `json:"paymentTermId"`
	Lines         []OrderLineInput `json:"lines" binding:"required"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// resolveLineDefaults дополняет строку данными товара и подбирает аналитику
// по правилам, если она не задана явно. Подытог всегда пересчитывается здесь,
// клиентскому значению не доверяем.
func resolveLineDefaults(tx *gorm.DB, partnerID uint, in *OrderLineInput) (description string, unitPrice float64, subtotal float64, analyticID *uint, err error) {
	description = in.Description
	unitPrice = in.UnitPrice
	analyticID = in.AnalyticAccountID

	if in.ProductID != nil {
		var product models.Product
		if err = tx.First(&product, *in.ProductID).Error; err != nil {
			return "", 0, 0, nil, services.NotFoundf("товар %d не найден", *in.ProductID)
		}
		if description == "" {
			description = product.Name
		}
		if unitPrice == 0 {
			unitPrice = product.UnitPrice
		}
	}

	if analyticID == nil {
		analyticID, err = services.SuggestAnalyticAccount(tx, &partnerID, in.ProductID)
		if err != nil {
			return "", 0, 0, nil, err
		}
	}

	subtotal = round2(in.Quantity * unitPrice)
	return description, unitPrice, subtotal, analyticID, nil
}

// CreatePurchaseOrderHandler создает заказ поставщику в статусе DRAFT.
func CreatePurchaseOrderHandler(c *gin.Context) {
	var input OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	orderDate, err := time.Parse("2006-01-02", input.OrderDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
		return
	}

	var order models.PurchaseOrder
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var partner models.Partner
		if err := tx.First(&partner, input.PartnerID).Error; err != nil {
			return services.NotFoundf("контрагент %d не найден", input.PartnerID)
		}
		if !partner.IsVendor {
			return services.Validationf("заказ поставщику требует контрагента-поставщика, а %q им не является", partner.Name)
		}

		ref, err := services.NextReference(tx, services.SeqPurchaseOrder)
		if err != nil {
			return err
		}
		order = models.PurchaseOrder{
			Reference:   ref,
			PartnerID:   input.PartnerID,
			OrderDate:   orderDate,
			Status:      models.OrderDraft,
			Notes:       input.Notes,
			CreatedByID: actorID(c),
		}
		for i := range input.Lines {
			desc, price, subtotal, analyticID, err := resolveLineDefaults(tx, input.PartnerID, &input.Lines[i])
			if err != nil {
				return err
			}
			order.Lines = append(order.Lines, models.PurchaseOrderLine{
				ProductID:         input.Lines[i].ProductID,
				Description:       desc,
				Quantity:          input.Lines[i].Quantity,
				UnitPrice:         price,
				Subtotal:          subtotal,
				AnalyticAccountID: analyticID,
			})
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// UpdatePurchaseOrderHandler правит черновик заказа. Строки заменяются
// целиком: старые удаляются, новые создаются в той же транзакции.
func UpdatePurchaseOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	orderDate, err := time.Parse("2006-01-02", input.OrderDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
		return
	}

	var order models.PurchaseOrder
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			return services.NotFoundf("заказ поставщику %d не найден", id)
		}
		if err := services.EnsureEditable(order.Status); err != nil {
			return err
		}

		order.PartnerID = input.PartnerID
		order.OrderDate = orderDate
		order.Notes = input.Notes
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.PurchaseOrderLine{}).Error; err != nil {
			return err
		}
		order.Lines = nil
		for i := range input.Lines {
			desc, price, subtotal, analyticID, err := resolveLineDefaults(tx, input.PartnerID, &input.Lines[i])
			if err != nil {
				return err
			}
			order.Lines = append(order.Lines, models.PurchaseOrderLine{
				OrderID:           order.ID,
				ProductID:         input.Lines[i].ProductID,
				Description:       desc,
				Quantity:          input.Lines[i].Quantity,
				UnitPrice:         price,
				Subtotal:          subtotal,
				AnalyticAccountID: analyticID,
			})
		}
		if len(order.Lines) == 0 {
			return nil
		}
		return tx.Create(&order.Lines).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ConfirmPurchaseOrderHandler подтверждает заказ.
func ConfirmPurchaseOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var order *models.PurchaseOrder
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = services.ConfirmPurchaseOrder(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastEvent("purchase_order.confirmed", order.Reference, actorID(c))
	c.JSON(http.StatusOK, order)
}

// CancelPurchaseOrderHandler отменяет подтвержденный заказ.
func CancelPurchaseOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var order *models.PurchaseOrder
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = services.CancelPurchaseOrder(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastEvent("purchase_order.cancelled", order.Reference, actorID(c))
	c.JSON(http.StatusOK, order)
}

// GetPurchaseOrderHandler возвращает заказ со строками.
func GetPurchaseOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var order models.PurchaseOrder
	if err := config.DB.Preload("Lines").Preload("Partner").First(&order, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Заказ поставщику не найден"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListPurchaseOrdersHandler возвращает заказы с пагинацией и поиском.
func ListPurchaseOrdersHandler(c *gin.Context) {
	var orders []models.PurchaseOrder
	var totalRows int64

	query := config.DB.Model(&models.PurchaseOrder{}).Preload("Partner")
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN partners ON partners.id = purchase_orders.partner_id").
			Where("LOWER(purchase_orders.reference) LIKE ? OR LOWER(partners.name) LIKE ?", pattern, pattern)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("purchase_orders.status = ?", status)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("purchase_orders.created_at desc").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить заказы"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, orders, totalRows))
}

// DeletePurchaseOrderHandler удаляет заказ. Подтвержденный заказ удалить
// нельзя - только отменить.
func DeletePurchaseOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var order models.PurchaseOrder
		if err := tx.First(&order, id).Error; err != nil {
			return services.NotFoundf("заказ поставщику %d не найден", id)
		}
		if order.Status == models.OrderConfirmed {
			return services.InvalidStatef("подтвержденный заказ %s нельзя удалить, только отменить", order.Reference)
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.PurchaseOrderLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Заказ удален"})
}
